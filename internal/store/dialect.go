package store

import (
	"fmt"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/opensonata/sonata-verify/pkg/models"
)

type dialect struct {
	driverName    string
	activities    string
	activityUnits string
	signals       string
}

var mysqlDialect = dialect{
	driverName: "mysql",
	activities: "select id, ts, validObservation, comments from Activities " +
		"where ts > FROM_UNIXTIME(?)",
	activityUnits: "select DxIntrinsics.dxHostName, ActivityUnits.validObservation, ActivityUnits.comments, " +
		"ActivityUnits.startOfDataCollection from DxIntrinsics, ActivityUnits " +
		"where ActivityUnits.dxIntrinsicsId = DxIntrinsics.id " +
		"and ActivityUnits.startOfDataCollection > FROM_UNIXTIME(?)",
	signals: "select dxNumber, type, pol, rfFreq, reason from CandidateSignals " +
		"where rfFreq > ? and rfFreq < ? and ts > FROM_UNIXTIME(?) and reason = ?",
}

// The SonATA schema uses mixed-case identifiers, which postgres folds
// unless quoted.
var postgresDialect = dialect{
	driverName: "pgx",
	activities: `select "id", "ts", "validObservation", "comments" from "Activities" ` +
		`where "ts" > to_timestamp($1)`,
	activityUnits: `select d."dxHostName", u."validObservation", u."comments", u."startOfDataCollection" ` +
		`from "DxIntrinsics" d, "ActivityUnits" u ` +
		`where u."dxIntrinsicsId" = d."id" ` +
		`and u."startOfDataCollection" > to_timestamp($1)`,
	signals: `select "dxNumber", "type", "pol", "rfFreq", "reason" from "CandidateSignals" ` +
		`where "rfFreq" > $1 and "rfFreq" < $2 and "ts" > to_timestamp($3) and "reason" = $4`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case models.DriverMySQL, "":
		return mysqlDialect, nil
	case models.DriverPostgres:
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
}
