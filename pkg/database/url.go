package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Store identifies the kind of destination behind a db_url.
type Store string

const (
	StoreSQLite    Store = "sqlite"
	StorePostgres  Store = "postgres"
	StoreMySQL     Store = "mysql"
	StoreSQLServer Store = "sqlserver"
	StoreDuckDB    Store = "duckdb"
	StoreMongo     Store = "mongodb"
)

// DefaultMongoDatabase is used when a mongodb URL names no database.
const DefaultMongoDatabase = "etl"

// ErrConnectionConfig marks every failure to build a connection handle.
var ErrConnectionConfig = errors.New("connection config error")

// ConnectionConfigError reports a malformed or unreachable db_url.
type ConnectionConfigError struct {
	URL string // redacted
	Err error
}

func (e *ConnectionConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConnectionConfig, e.URL, e.Err)
}

func (e *ConnectionConfigError) Unwrap() error { return e.Err }

func (e *ConnectionConfigError) Is(target error) bool { return target == ErrConnectionConfig }

// Target is a parsed db_url ready to hand to a driver.
type Target struct {
	Store    Store
	Driver   string // database/sql driver name, empty for MongoDB
	DSN      string
	Database string
}

// ParseURL accepts SQLAlchemy-style URLs (sqlite:///file.db,
// postgresql+psycopg2://..., mysql+pymysql://..., mssql+pyodbc://...) as well
// as the native forms of the Go drivers.
func ParseURL(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, configErr(raw, errors.New("db_url is empty"))
	}
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return Target{}, configErr(raw, errors.New("db_url must look like <scheme>://..."))
	}

	scheme := strings.ToLower(raw[:idx])
	rest := raw[idx+len("://"):]

	switch scheme {
	case "mongodb", "mongodb+srv":
		return parseMongo(raw)
	}

	base := scheme
	if i := strings.Index(base, "+"); i >= 0 {
		base = base[:i]
	}

	switch base {
	case "sqlite":
		path, err := filePath(rest)
		if err != nil {
			return Target{}, configErr(raw, err)
		}
		if path == "" {
			path = ":memory:"
		}
		return Target{Store: StoreSQLite, Driver: "sqlite", DSN: path, Database: path}, nil
	case "duckdb":
		path, err := filePath(rest)
		if err != nil {
			return Target{}, configErr(raw, err)
		}
		if path == ":memory:" {
			path = ""
		}
		return Target{Store: StoreDuckDB, Driver: "duckdb", DSN: path, Database: path}, nil
	case "postgres", "postgresql":
		return parsePostgres(raw, rest)
	case "mysql", "mariadb":
		return parseMySQL(raw, rest)
	case "sqlserver", "mssql":
		return parseSQLServer(raw, scheme, rest)
	default:
		return Target{}, configErr(raw, fmt.Errorf("unsupported scheme %q", scheme))
	}
}

// filePath handles the three-slash form used by file databases:
// "" and "/:memory:" mean in-memory, "/rel.db" is relative, "//abs.db" absolute.
func filePath(rest string) (string, error) {
	if rest == "" {
		return "", nil
	}
	if !strings.HasPrefix(rest, "/") {
		return "", errors.New("file database URLs take the form <scheme>:///<path>")
	}
	path := rest[1:]
	if path == "" {
		return "", nil
	}
	return path, nil
}

func parsePostgres(raw, rest string) (Target, error) {
	u, err := url.Parse("postgres://" + rest)
	if err != nil {
		return Target{}, configErr(raw, err)
	}
	if u.Host == "" {
		return Target{}, configErr(raw, errors.New("postgres URL needs a host"))
	}
	return Target{
		Store:    StorePostgres,
		Driver:   "pgx",
		DSN:      u.String(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func parseMySQL(raw, rest string) (Target, error) {
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return Target{}, configErr(raw, err)
	}
	if u.Host == "" {
		return Target{}, configErr(raw, errors.New("mysql URL needs a host"))
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return Target{}, configErr(raw, errors.New("mysql URL needs a database name"))
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = dbName
	cfg.ParseTime = true
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	// remaining query parameters (tls, timeout, loc, charset, ...) are DSN
	// parameters; the driver validates them when the DSN is parsed back
	if q := u.Query(); len(q) > 0 {
		cfg.Params = make(map[string]string, len(q))
		for k := range q {
			cfg.Params[k] = q.Get(k)
		}
	}
	dsn := cfg.FormatDSN()
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return Target{}, configErr(raw, err)
	}

	return Target{Store: StoreMySQL, Driver: "mysql", DSN: dsn, Database: dbName}, nil
}

func parseSQLServer(raw, scheme, rest string) (Target, error) {
	u, err := url.Parse("sqlserver://" + rest)
	if err != nil {
		return Target{}, configErr(raw, err)
	}
	if u.Host == "" {
		return Target{}, configErr(raw, errors.New("sqlserver URL needs a host"))
	}

	q := u.Query()
	if scheme != "sqlserver" {
		// SQLAlchemy puts the database in the path and the ODBC driver in the query.
		if db := strings.TrimPrefix(u.Path, "/"); db != "" {
			q.Set("database", db)
		}
		q.Del("driver")
		u.Path = ""
		u.RawQuery = q.Encode()
	}
	return Target{
		Store:    StoreSQLServer,
		Driver:   "sqlserver",
		DSN:      u.String(),
		Database: q.Get("database"),
	}, nil
}

func parseMongo(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, configErr(raw, err)
	}
	if u.Host == "" {
		return Target{}, configErr(raw, errors.New("mongodb URL needs a host"))
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		db = DefaultMongoDatabase
	}
	return Target{Store: StoreMongo, DSN: raw, Database: db}, nil
}

func configErr(raw string, err error) error {
	return &ConnectionConfigError{URL: redact(raw), Err: err}
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	return u.Redacted()
}
