package persistence

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/configuration"

	"github.com/lib/pq"
)

// NewPostgreSQLDB opens the shared PostgreSQL pool. Tenants live in separate
// schemas of the same database.
func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port), Path: "/" + cfg.Name}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()

	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// qualify prefixes a table with the quoted tenant schema.
func qualify(tenant model.Tenant, table string) string {
	schema := tenant.Schema
	if schema == "" {
		schema = "public"
	}
	return pq.QuoteIdentifier(schema) + "." + table
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time
	return &v
}

func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
