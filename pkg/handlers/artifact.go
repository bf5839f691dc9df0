/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/timeutil"
)

// artifactIdLength is the hex prefix of the content hash used as the id.
const artifactIdLength = 32

// maxArtifactBytes bounds a single upload.
const maxArtifactBytes = 256 << 20

// UploadArtifact stores a code tarball and returns its content-derived id.
func (h *Handler) UploadArtifact(c *gin.Context) {
	handle(c, h.uploadArtifact)
}

func (h *Handler) uploadArtifact(c *gin.Context) (interface{}, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, nexuserrors.NewBadRequest("failed to read artifact body")
	}
	if len(data) == 0 {
		return nil, nexuserrors.NewBadRequest("artifact body is empty")
	}
	if len(data) > maxArtifactBytes {
		return nil, nexuserrors.NewBadRequest("artifact exceeds the size limit")
	}

	sum := sha256.Sum256(data)
	artifactId := hex.EncodeToString(sum[:])[:artifactIdLength]
	artifact := &dbclient.Artifact{
		ArtifactId: artifactId,
		Data:       data,
		Size:       int64(len(data)),
		CreatedAt:  timeutil.EpochNow(),
	}
	// content-addressed: re-uploading the same bytes is a no-op
	if err = h.dbClient.InsertArtifact(c.Request.Context(), artifact); err != nil {
		return nil, err
	}
	klog.Infof("artifact %s stored (%d bytes)", artifactId, len(data))
	c.Status(http.StatusCreated)
	return gin.H{"data": artifactId}, nil
}
