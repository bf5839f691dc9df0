/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/timeutil"
)

const (
	TBlacklistedGpu = "blacklisted_gpu"
)

var (
	insertBlacklistCmd = fmt.Sprintf(
		`INSERT INTO %s (node, gpu_idx, blacklisted_at) VALUES ($1, $2, $3) ON CONFLICT (node, gpu_idx) DO NOTHING`,
		TBlacklistedGpu)
	deleteBlacklistCmd = fmt.Sprintf(`DELETE FROM %s WHERE node = $1 AND gpu_idx = $2`, TBlacklistedGpu)
	listBlacklistCmd   = fmt.Sprintf(`SELECT gpu_idx FROM %s WHERE node = $1 ORDER BY gpu_idx`, TBlacklistedGpu)
)

// AddBlacklistedGpu records a GPU as excluded from scheduling. The returned
// flag reports whether the call changed anything; blacklisting an already
// blacklisted GPU is a no-op.
func (c *Client) AddBlacklistedGpu(ctx context.Context, node string, gpuIdx int) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	return addBlacklistedGpu(ctx, db, node, gpuIdx)
}

// AddBlacklistedGpu records a GPU as excluded from scheduling inside the
// transaction.
func (t *Tx) AddBlacklistedGpu(ctx context.Context, node string, gpuIdx int) (bool, error) {
	return addBlacklistedGpu(ctx, t.tx, node, gpuIdx)
}

func addBlacklistedGpu(ctx context.Context, e sqlx.ExtContext, node string, gpuIdx int) (bool, error) {
	res, err := e.ExecContext(ctx, insertBlacklistCmd, node, gpuIdx, timeutil.EpochNow())
	if err != nil {
		klog.ErrorS(err, "failed to blacklist gpu", "node", node, "gpuIdx", gpuIdx)
		return false, nexuserrors.NewDatabaseError(err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nexuserrors.NewDatabaseError(err.Error())
	}
	return n == 1, nil
}

// RemoveBlacklistedGpu lifts the exclusion of a GPU. The returned flag
// reports whether the GPU was blacklisted before the call.
func (c *Client) RemoveBlacklistedGpu(ctx context.Context, node string, gpuIdx int) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, deleteBlacklistCmd, node, gpuIdx)
	if err != nil {
		klog.ErrorS(err, "failed to remove gpu from blacklist", "node", node, "gpuIdx", gpuIdx)
		return false, nexuserrors.NewDatabaseError(err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nexuserrors.NewDatabaseError(err.Error())
	}
	return n == 1, nil
}

// ListBlacklistedGpus returns the blacklisted GPU indexes of a node in
// ascending order.
func (c *Client) ListBlacklistedGpus(ctx context.Context, node string) ([]int, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	return listBlacklistedGpus(ctx, db, node)
}

// ListBlacklistedGpus returns the blacklisted GPU indexes of a node inside
// the transaction.
func (t *Tx) ListBlacklistedGpus(ctx context.Context, node string) ([]int, error) {
	return listBlacklistedGpus(ctx, t.tx, node)
}

func listBlacklistedGpus(ctx context.Context, q sqlx.ExtContext, node string) ([]int, error) {
	var idxs []int
	if err := sqlx.SelectContext(ctx, q, &idxs, listBlacklistCmd, node); err != nil {
		klog.ErrorS(err, "failed to list blacklisted gpus", "node", node)
		return nil, nexuserrors.NewDatabaseError(err.Error())
	}
	return idxs, nil
}
