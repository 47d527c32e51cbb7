package repositories

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DriverMySQL = "mysql"
	DriverPgx   = "pgx"
)

// Rebind rewrites ? placeholders into $n for PostgreSQL.
func Rebind(driver, query string) string {
	if driver != DriverPgx {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PrepareDSN adjusts a connection string for the repositories. MySQL must
// report matched rather than changed rows, otherwise an UPDATE that
// rewrites identical values looks like a missing row.
func PrepareDSN(driver, dsn string) (string, error) {
	if driver != DriverMySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// isDuplicateKeyError matches unique constraint violations of both
// supported drivers.
func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
