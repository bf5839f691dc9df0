/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"database/sql"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"k8s.io/klog/v2"

	jsonutils "github.com/AMD-AIG-AIMA/nexus/pkg/utils/json"
)

// DBDriver represents the type of database driver to use
type DBDriver string

const (
	// PgDriver represents the PostgreSQL database driver
	PgDriver DBDriver = "postgres"
)

// DBConfig holds the SQL store endpoint and connection pool settings.
type DBConfig struct {
	Endpoint       string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MaxIdleTime    time.Duration
	ConnectTimeout int
	RequestTimeout time.Duration
}

// SourceName returns the DSN passed to the driver, with the connect timeout
// appended when set.
func (cfg *DBConfig) SourceName() string {
	if cfg.ConnectTimeout <= 0 {
		return cfg.Endpoint
	}
	sep := "?"
	for _, c := range cfg.Endpoint {
		if c == '?' {
			sep = "&"
			break
		}
	}
	return fmt.Sprintf("%s%sconnect_timeout=%d", cfg.Endpoint, sep, cfg.ConnectTimeout)
}

// Connect establishes a connection to the database using the provided configuration and driver.
// It creates a sqlx.DB connection pool with configurable connection limits and lifetimes.
func Connect(cfg *DBConfig, driverName DBDriver) (*sqlx.DB, error) {
	dataSource := cfg.SourceName()
	db, err := sqlx.Connect(string(driverName), dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to connect store, err: %v", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	return db, nil
}

// ConnectGorm establishes a connection to the database using GORM.
// The gorm handle is only used for schema migration; queries go through sqlx.
func ConnectGorm(cfg *DBConfig) (*gorm.DB, error) {
	dialector := postgres.Dialector{
		Config: &postgres.Config{
			DSN: cfg.SourceName(),
		},
	}
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}
	return gormDB, nil
}

// ParseNullString parses the input data.
func ParseNullString(str sql.NullString) string {
	if str.Valid {
		return str.String
	}
	return ""
}

// NullString converts a string to sql.NullString.
func NullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{
			Valid: false,
		}
	}
	return sql.NullString{
		String: str,
		Valid:  true,
	}
}

// ParseNullFloat parses the input data, returning nil for SQL NULL.
func ParseNullFloat(f sql.NullFloat64) *float64 {
	if f.Valid {
		v := f.Float64
		return &v
	}
	return nil
}

// NullFloat converts a *float64 to sql.NullFloat64.
func NullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{
			Valid: false,
		}
	}
	return sql.NullFloat64{
		Float64: *f,
		Valid:   true,
	}
}

// ParseNullInt parses the input data, returning nil for SQL NULL.
func ParseNullInt(n sql.NullInt64) *int64 {
	if n.Valid {
		v := n.Int64
		return &v
	}
	return nil
}

// NullInt converts a *int64 to sql.NullInt64.
func NullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{
			Valid: false,
		}
	}
	return sql.NullInt64{
		Int64: *n,
		Valid: true,
	}
}

// CvtToSqlStr converts data to the target format.
func CvtToSqlStr(sql sqrl.Sqlizer) string {
	sqlStr, args, err := sql.ToSql()
	if err != nil {
		klog.Errorf("failed to convert sql, err: %v", err)
		return ""
	}
	return sqlStr + " " + string(jsonutils.MarshalSilently(args))
}
