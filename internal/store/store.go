// Package store provides read-only access to the SonATA observation
// database: activities, per-node activity units and candidate signals.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensonata/sonata-verify/pkg/models"
)

// ErrUnsupportedDriver is returned for a driver other than mysql or postgres.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// SignalQuery selects confirmed candidate signals inside a frequency window.
type SignalQuery struct {
	Since   time.Time
	LowMHz  float64
	HighMHz float64
	Reason  string
}

// Store is the read-only view of the observation database used by the checks.
type Store interface {
	// Activities returns the activities created after since.
	Activities(ctx context.Context, since time.Time) ([]models.Activity, error)
	// ActivityUnits returns the node participation records whose data
	// collection started after since. Rows are not tied to a specific activity.
	ActivityUnits(ctx context.Context, since time.Time) ([]models.ActivityUnit, error)
	// ConfirmedSignals returns candidate signals matching q.
	ConfirmedSignals(ctx context.Context, q SignalQuery) ([]models.CandidateSignal, error)
	// Describe returns the SQL text used by the named query, for diagnostics.
	Describe(query string) string
	Close() error
}

// Query names accepted by Describe.
const (
	QueryActivities    = "activities"
	QueryActivityUnits = "activity_units"
	QuerySignals       = "signals"
)

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	safeDSN string
}

// Open connects to the database described by cfg and verifies the
// connection with a ping bounded by cfg.Timeout.
func Open(ctx context.Context, cfg models.DatabaseConfig) (*SQLStore, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, safeDSN, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening a connection with the %s database [%s]: %w", cfg.Driver, safeDSN, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging the %s database [%s]: %w", cfg.Driver, safeDSN, err)
	}

	return &SQLStore{db: db, dialect: d, safeDSN: safeDSN}, nil
}

// New wraps an already opened database handle using the given driver's
// SQL dialect.
func New(db *sql.DB, driver string) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// DSN returns the connection string with the password masked.
func (s *SQLStore) DSN() string {
	return s.safeDSN
}

// Describe returns the SQL text of the named query.
func (s *SQLStore) Describe(query string) string {
	switch query {
	case QueryActivities:
		return s.dialect.activities
	case QueryActivityUnits:
		return s.dialect.activityUnits
	case QuerySignals:
		return s.dialect.signals
	}
	return ""
}

// Activities returns the activities created after since.
func (s *SQLStore) Activities(ctx context.Context, since time.Time) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.activities, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Activity
	for rows.Next() {
		var (
			id       int64
			ts       sql.NullTime
			valid    sql.NullString
			comments sql.NullString
		)
		if err := rows.Scan(&id, &ts, &valid, &comments); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		out = append(out, models.Activity{
			ID:       id,
			Created:  ts.Time,
			Validity: models.ParseValidity(valid.String),
			Comments: comments.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading activities: %w", err)
	}
	return out, nil
}

// ActivityUnits returns the activity units whose data collection started
// after since, joined with the node intrinsics for the host name.
func (s *SQLStore) ActivityUnits(ctx context.Context, since time.Time) ([]models.ActivityUnit, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.activityUnits, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying activity units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ActivityUnit
	for rows.Next() {
		var (
			host     sql.NullString
			valid    sql.NullString
			comments sql.NullString
			start    sql.NullTime
		)
		if err := rows.Scan(&host, &valid, &comments, &start); err != nil {
			return nil, fmt.Errorf("scanning activity unit: %w", err)
		}
		out = append(out, models.ActivityUnit{
			NodeHostName:          host.String,
			Validity:              models.ParseValidity(valid.String),
			Comments:              comments.String,
			StartOfDataCollection: start.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading activity units: %w", err)
	}
	return out, nil
}

// ConfirmedSignals returns the candidate signals strictly inside the
// frequency window, detected after q.Since and classified with q.Reason.
func (s *SQLStore) ConfirmedSignals(ctx context.Context, q SignalQuery) ([]models.CandidateSignal, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.signals, q.LowMHz, q.HighMHz, q.Since.Unix(), q.Reason)
	if err != nil {
		return nil, fmt.Errorf("querying candidate signals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.CandidateSignal
	for rows.Next() {
		var (
			sig    models.CandidateSignal
			dx     sql.NullInt64
			typ    sql.NullString
			pol    sql.NullString
			freq   sql.NullFloat64
			reason sql.NullString
		)
		if err := rows.Scan(&dx, &typ, &pol, &freq, &reason); err != nil {
			return nil, fmt.Errorf("scanning candidate signal: %w", err)
		}
		sig.NodeNumber = int(dx.Int64)
		sig.NodeUnknown = !dx.Valid
		sig.RFFreqMHz = freq.Float64
		sig.Type = typ.String
		sig.Pol = pol.String
		sig.Reason = reason.String
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading candidate signals: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database [%s]: %w", s.safeDSN, err)
	}
	return nil
}
