package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/ini.v1"

	"github.com/opensonata/sonata-verify/pkg/models"
)

const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// buildDSN returns the driver connection string for cfg along with a copy
// that is safe to log.
func buildDSN(cfg models.DatabaseConfig) (dsn, safe string, err error) {
	switch cfg.Driver {
	case models.DriverMySQL, "":
		return mysqlDSN(cfg)
	case models.DriverPostgres:
		return postgresDSN(cfg)
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
}

func mysqlDSN(cfg models.DatabaseConfig) (string, string, error) {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(hostOr(cfg.Host), strconv.Itoa(portOr(cfg.Port, defaultMySQLPort)))
	c.ParseTime = true

	if cfg.MyCNF != "" {
		if err := applyMyCNF(c, cfg.MyCNF); err != nil {
			return "", "", err
		}
	}
	c.DBName = cfg.Name

	dsn := c.FormatDSN()

	c.Passwd = strings.Repeat("x", len(c.Passwd))
	return dsn, c.FormatDSN(), nil
}

func postgresDSN(cfg models.DatabaseConfig) (string, string, error) {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(hostOr(cfg.Host), strconv.Itoa(portOr(cfg.Port, defaultPostgresPort))),
		Path:   "/" + cfg.Name,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else if cfg.User != "" {
		u.User = url.User(cfg.User)
	}
	return u.String(), u.Redacted(), nil
}

// applyMyCNF overrides connection settings with the [client] section of a
// MySQL option file. A socket takes precedence over host and port.
func applyMyCNF(c *mysql.Config, path string) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("reading my.cnf %s: %w", path, err)
	}

	section, err := f.GetSection("client")
	if err != nil {
		return fmt.Errorf("my.cnf %s: %w", path, err)
	}

	if user := section.Key("user").String(); user != "" {
		c.User = user
	}
	if password := section.Key("password").String(); password != "" {
		c.Passwd = password
	}

	if socket := section.Key("socket").String(); socket != "" {
		c.Net = "unix"
		c.Addr = socket
		return nil
	}

	host, port, _ := net.SplitHostPort(c.Addr)
	if v := section.Key("host").String(); v != "" {
		host = v
	}
	if section.HasKey("port") {
		p, err := section.Key("port").Int()
		if err != nil {
			return fmt.Errorf("my.cnf %s: invalid port: %w", path, err)
		}
		port = strconv.Itoa(p)
	}
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, port)
	return nil
}

func hostOr(host string) string {
	if host == "" {
		return "localhost"
	}
	return host
}

func portOr(port, def int) int {
	if port <= 0 {
		return def
	}
	return port
}
