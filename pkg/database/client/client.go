/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/nexus/pkg/config"
	"github.com/AMD-AIG-AIMA/nexus/pkg/database/utils"
	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	backoffutil "github.com/AMD-AIG-AIMA/nexus/pkg/utils/backoff"
)

var (
	once     sync.Once
	instance *Client
)

// Client manages both sqlx and gorm database connections against the SQL
// store. All queries go through sqlx; gorm only drives schema migration.
type Client struct {
	db   *sqlx.DB
	gorm *gorm.DB
	*utils.DBConfig
}

// NewClient creates a singleton instance of the database Client.
// It initializes the database configuration from the loaded config,
// validates the parameters, and establishes connections using both
// sqlx and gorm. The initialization happens only once even if called
// multiple times.
func NewClient() *Client {
	once.Do(func() {
		cfg := &utils.DBConfig{
			Endpoint:       config.GetStoreEndpoint(),
			MaxOpenConns:   config.GetDBMaxOpenConns(),
			MaxIdleConns:   config.GetDBMaxIdleConns(),
			MaxLifetime:    time.Duration(config.GetDBMaxLifetimeSecond()) * time.Second,
			MaxIdleTime:    time.Duration(config.GetDBMaxIdleTimeSecond()) * time.Second,
			ConnectTimeout: config.GetDBConnectTimeoutSecond(),
			RequestTimeout: time.Duration(config.GetDBRequestTimeoutSecond()) * time.Second,
		}
		if err := checkParams(cfg); err != nil {
			klog.ErrorS(err, "failed to check store params")
			return
		}
		db, err := utils.Connect(cfg, utils.PgDriver)
		if err != nil {
			klog.Errorf("%s", err.Error())
			return
		}
		// the store may still be coming up when the daemon starts
		if err = backoffutil.Retry(db.Ping, time.Minute, 5*time.Second); err != nil {
			klog.ErrorS(err, "failed to ping store")
			return
		}
		gormDb, err := utils.ConnectGorm(cfg)
		if err != nil {
			klog.ErrorS(err, "failed to open gorm handle")
			return
		}
		instance = &Client{db: db, DBConfig: cfg, gorm: gormDb}
		klog.Infof("init store-client successfully! conn-timeout: %d(s), request-timeout: %d(s)",
			cfg.ConnectTimeout, config.GetDBRequestTimeoutSecond())
	})
	return instance
}

// Close performs the Close operation.
func (c *Client) Close() {
	err := c.db.Close()
	if err != nil {
		klog.ErrorS(err, "failed to close store connection")
	}
}

// getDB retrieves DB for internal use.
func (c *Client) getDB() (*sqlx.DB, error) {
	if c == nil || c.db == nil {
		return nil, nexuserrors.NewInternalError("The client of store has not been initialized")
	}
	return c.db.Unsafe(), nil
}

// Tx is a transaction handle. Every store operation exposed on Tx sees the
// same snapshot and either commits or rolls back as a unit.
type Tx struct {
	tx *sqlx.Tx
}

// Transact runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise. Transactions are
// kept short; no process control happens inside fn.
func (c *Client) Transact(ctx context.Context, fn func(tx *Tx) error) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if c.RequestTimeout > 0 {
		ctx2, cancel := context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
		ctx = ctx2
	}
	sqlxTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		klog.ErrorS(err, "failed to begin transaction")
		return nexuserrors.NewDatabaseError(err.Error())
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlxTx.Rollback(); rbErr != nil {
				klog.ErrorS(rbErr, "failed to rollback transaction")
			}
		}
	}()
	if err = fn(&Tx{tx: sqlxTx.Unsafe()}); err != nil {
		return err
	}
	if err = sqlxTx.Commit(); err != nil {
		klog.ErrorS(err, "failed to commit transaction")
		return nexuserrors.NewDatabaseError(err.Error())
	}
	committed = true
	return nil
}

// checkParams checks Params and returns the result.
func checkParams(cfg *utils.DBConfig) error {
	var errs []error
	if cfg.Endpoint == "" {
		errs = append(errs, fmt.Errorf("store_endpoint not found"))
	}
	return utilerrors.NewAggregate(errs)
}
