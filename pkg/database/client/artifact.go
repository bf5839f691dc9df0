/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
)

const (
	TArtifact = "artifact"
)

var (
	insertArtifactFormat = `INSERT INTO ` + TArtifact + ` (%s) VALUES (%s)`
	getArtifactCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE artifact_id = $1 LIMIT 1`, TArtifact)
	existsArtifactCmd    = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE artifact_id = $1`, TArtifact)
	deleteArtifactCmd    = fmt.Sprintf(`DELETE FROM %s WHERE artifact_id = $1`, TArtifact)
	countArtifactRefsCmd = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE artifact_id = $1 AND status = '%s'`,
		TJob, "queued")
	orphanArtifactsCmd = fmt.Sprintf(
		`SELECT a.artifact_id FROM %s a LEFT JOIN %s j ON j.artifact_id = a.artifact_id AND j.status = '%s' WHERE j.artifact_id IS NULL AND a.created_at < $1`,
		TArtifact, TJob, "queued")
)

// InsertArtifact stores a code tarball. Inserting the same content twice is
// a no-op; artifacts are content-addressed.
func (c *Client) InsertArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil {
		return nexuserrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	return insertArtifact(ctx, db, artifact)
}

// InsertArtifact stores a code tarball inside the transaction.
func (t *Tx) InsertArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil {
		return nexuserrors.NewBadRequest("the input is empty")
	}
	return insertArtifact(ctx, t.tx, artifact)
}

func insertArtifact(ctx context.Context, e sqlx.ExtContext, artifact *Artifact) error {
	_, err := sqlx.NamedExecContext(ctx, e, generateCommand(*artifact, insertArtifactFormat, "id"), artifact)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return nil
		}
		klog.ErrorS(err, "failed to insert artifact", "id", artifact.ArtifactId)
		return nexuserrors.NewDatabaseError(err.Error())
	}
	return nil
}

// GetArtifact retrieves an artifact with its data by id.
func (c *Client) GetArtifact(ctx context.Context, artifactId string) (*Artifact, error) {
	if artifactId == "" {
		return nil, nexuserrors.NewBadRequest("artifactId is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var rows []*Artifact
	if err = db.SelectContext(ctx, &rows, getArtifactCmd, artifactId); err != nil {
		klog.ErrorS(err, "failed to select artifact", "id", artifactId)
		return nil, nexuserrors.NewDatabaseError(err.Error())
	}
	if len(rows) == 0 {
		return nil, nexuserrors.NewNotFound(nexuserrors.ArtifactKind, artifactId)
	}
	return rows[0], nil
}

// ArtifactExists reports whether an artifact with the given id is stored.
func (c *Client) ArtifactExists(ctx context.Context, artifactId string) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	var cnt int
	if err = db.GetContext(ctx, &cnt, existsArtifactCmd, artifactId); err != nil {
		return false, nexuserrors.NewDatabaseError(err.Error())
	}
	return cnt > 0, nil
}

// CountArtifactRefs returns the number of queued jobs that reference an
// artifact inside the transaction. Only queued jobs still need the blob; a
// started job has already extracted it.
func (t *Tx) CountArtifactRefs(ctx context.Context, artifactId string) (int, error) {
	var cnt int
	if err := t.tx.GetContext(ctx, &cnt, countArtifactRefsCmd, artifactId); err != nil {
		return 0, nexuserrors.NewDatabaseError(err.Error())
	}
	return cnt, nil
}

// DeleteArtifact removes an artifact record inside the transaction.
func (t *Tx) DeleteArtifact(ctx context.Context, artifactId string) error {
	if _, err := t.tx.ExecContext(ctx, deleteArtifactCmd, artifactId); err != nil {
		klog.ErrorS(err, "failed to delete artifact", "id", artifactId)
		return nexuserrors.NewDatabaseError(err.Error())
	}
	return nil
}

// ListOrphanArtifacts returns ids of artifacts created before the cutoff that
// no queued job references anymore. The cutoff spares uploads whose job
// submission has not landed yet.
func (c *Client) ListOrphanArtifacts(ctx context.Context, createdBefore float64) ([]string, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var ids []string
	if err = db.SelectContext(ctx, &ids, orphanArtifactsCmd, createdBefore); err != nil {
		klog.ErrorS(err, "failed to list orphan artifacts")
		return nil, nexuserrors.NewDatabaseError(err.Error())
	}
	return ids, nil
}

// DeleteOrphanArtifact deletes an artifact only while no queued job
// references it.
func (c *Client) DeleteOrphanArtifact(ctx context.Context, artifactId string) error {
	return c.Transact(ctx, func(tx *Tx) error {
		refs, err := tx.CountArtifactRefs(ctx, artifactId)
		if err != nil {
			return err
		}
		if refs > 0 {
			return nil
		}
		return tx.DeleteArtifact(ctx, artifactId)
	})
}
