package store

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib" //import for driver support
	_ "modernc.org/sqlite"             //import for driver support
)

const (
	DriverMySql    string = "mysql"
	DriverPostgres string = "pgx"
	DriverSqlite   string = "sqlite"
)

const (
	mysqlErrDuplicateEntry uint16 = 1062
	pgErrUniqueViolation   string = "23505"
)

// dialect captures what differs between the supported databases; the
// queries themselves are shared.
type dialect struct {
	driver     string
	textType   string
	seqColumn  string
	rebindFx   func(query string) string
	maxConns   int
	dataSource func(c *sqlConfig) string
}

func getDialect(driver string) (*dialect, error) {
	switch driver {
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	case DriverMySql:
		return &dialect{
			driver:    DriverMySql,
			textType:  "VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
			seqColumn: "seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY",
			rebindFx:  func(query string) string { return query },
			dataSource: func(c *sqlConfig) string {
				config := mysql.NewConfig()
				config.User = c.Username
				config.Passwd = c.Password
				config.Net = "tcp"
				config.Addr = net.JoinHostPort(c.Hostname, c.Port)
				config.DBName = c.Database
				config.ParseTime = c.ParseTime
				return config.FormatDSN()
			},
		}, nil
	case DriverPostgres:
		return &dialect{
			driver:    DriverPostgres,
			textType:  `VARCHAR(255) COLLATE "C"`,
			seqColumn: "seq BIGSERIAL PRIMARY KEY",
			rebindFx:  rebindDollar,
			dataSource: func(c *sqlConfig) string {
				u := &url.URL{
					Scheme:   "postgres",
					User:     url.UserPassword(c.Username, c.Password),
					Host:     net.JoinHostPort(c.Hostname, c.Port),
					Path:     "/" + c.Database,
					RawQuery: url.Values{"sslmode": {c.SslMode}}.Encode(),
				}
				return u.String()
			},
		}, nil
	case DriverSqlite:
		return &dialect{
			driver:    DriverSqlite,
			textType:  "TEXT",
			seqColumn: "seq INTEGER PRIMARY KEY AUTOINCREMENT",
			rebindFx:  func(query string) string { return query },
			//KIM: sqlite only allows a single writer, a single connection
			// avoids "database is locked" errors
			maxConns: 1,
			dataSource: func(c *sqlConfig) string {
				return c.File
			},
		}, nil
	}
}

func rebindDollar(query string) string {
	var builder strings.Builder
	var n int

	for _, r := range query {
		if r != '?' {
			builder.WriteRune(r)
			continue
		}
		n++
		builder.WriteString("$" + strconv.Itoa(n))
	}
	return builder.String()
}

func (d *dialect) rebind(query string) string {
	return d.rebindFx(query)
}

func (d *dialect) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s,
			id VARCHAR(36) NOT NULL UNIQUE,
			name %[3]s NOT NULL,
			email %[3]s NOT NULL UNIQUE,
			role %[3]s NOT NULL,
			assessment_submitted BOOLEAN NOT NULL DEFAULT FALSE,
			assessment_answers TEXT,
			submission_date BIGINT,
			interest_area %[3]s NOT NULL DEFAULT '',
			long_term_goals %[3]s NOT NULL DEFAULT '',
			work_culture_preference %[3]s NOT NULL DEFAULT '',
			learning_attitude %[3]s NOT NULL DEFAULT '',
			learning_score INTEGER
		)`, tableEmployees, d.seqColumn, d.textType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			employee_id VARCHAR(36) NOT NULL,
			tag_order INTEGER NOT NULL,
			tag %s NOT NULL,
			PRIMARY KEY (employee_id, tag_order)
		)`, tableEmployeeTags, d.textType),
	}
}

// isUniqueViolation reports whether err is the driver's unique constraint
// error.
func isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	var pgErr *pgconn.PgError

	switch {
	case errors.As(err, &mysqlErr):
		return mysqlErr.Number == mysqlErrDuplicateEntry
	case errors.As(err, &pgErr):
		return pgErr.Code == pgErrUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
