package sqlconfig

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"govdata-etl/lib/sqlutil"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct is the relational store section of the run configuration. Driver
// selects the database/sql driver: "pgx" (default) and "postgres" talk to
// Postgres, "mysql" to MySQL, "sqlite" to a local file and "libsql" to a
// remote libsql/turso database.
type Struct struct {
	Driver   string `json:"driver" yaml:"driver"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Host     string `json:"pg_host" yaml:"pg_host"`
	Port     int    `json:"pg_port" yaml:"pg_port"`
	Database string `json:"pg_db" yaml:"pg_db"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`
	File     string `json:"file" yaml:"file"`
	URL      string `json:"url" yaml:"url"`
}

func (config Struct) driver() string {
	if config.Driver == "" {
		return "pgx"
	}
	return config.Driver
}

func (config Struct) DSN() (string, error) {
	switch config.driver() {
	case "pgx", "postgres":
		port := config.Port
		if port == 0 {
			port = 5432
		}
		sslmode := config.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(config.Username, config.Password),
			Host:     net.JoinHostPort(config.Host, strconv.Itoa(port)),
			Path:     "/" + config.Database,
			RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
		}
		return dsn.String(), nil
	case "mysql":
		port := config.Port
		if port == 0 {
			port = 3306
		}
		mc := mysql.NewConfig()
		mc.User = config.Username
		mc.Passwd = config.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(config.Host, strconv.Itoa(port))
		mc.DBName = config.Database
		return mc.FormatDSN(), nil
	case "sqlite":
		if config.File == "" {
			return "", fmt.Errorf("a sqlite file was not specified")
		}
		return config.File, nil
	case "libsql":
		if config.URL == "" {
			return "", fmt.Errorf("a libsql url was not specified")
		}
		return config.URL, nil
	}
	return "", fmt.Errorf("unsupported sql driver %q", config.Driver)
}

// OpenDB opens and pings the configured database. The caller owns the
// returned handle and must close it.
func (config Struct) OpenDB(ctx context.Context) (*sql.DB, sqlutil.Dialect, error) {
	driver := config.driver()
	dialect, err := sqlutil.DialectFor(driver)
	if err != nil {
		return nil, sqlutil.Dialect{}, err
	}
	dsn, err := config.DSN()
	if err != nil {
		return nil, sqlutil.Dialect{}, err
	}

	if driver == "sqlite" && dsn != ":memory:" {
		_, statErr := os.Stat(dsn)
		if os.IsNotExist(statErr) {
			f, err := os.Create(dsn)
			if err != nil {
				return nil, sqlutil.Dialect{}, err
			}
			f.Close()
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, sqlutil.Dialect{}, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		if dsn != ":memory:" {
			_, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return nil, sqlutil.Dialect{}, err
			}
		}
		_, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON")
		if err != nil {
			db.Close()
			return nil, sqlutil.Dialect{}, err
		}
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, sqlutil.Dialect{}, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, dialect, nil
}
