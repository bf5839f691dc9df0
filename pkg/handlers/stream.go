/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/nexus/pkg/handlers/apiutils"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
)

const streamPollInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the bearer token already gates the endpoint
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamJobLogs tails the output log of a job over a websocket. The stream
// sends the existing log content first, then follows appended data until the
// job reaches a terminal state or the client disconnects.
func (h *Handler) StreamJobLogs(c *gin.Context) {
	j, err := h.dbClient.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		klog.ErrorS(err, "failed to upgrade log stream", "job", j.Id)
		return
	}
	defer conn.Close()

	// drain client control frames so close is noticed
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var offset int64
	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()
	for {
		offset = h.streamLogChunk(conn, j, offset)

		current, err := h.dbClient.GetJob(c.Request.Context(), j.Id)
		if err == nil && current.Status.IsTerminal() {
			// one final read picks up everything written before the reap
			h.streamLogChunk(conn, j, offset)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(current.Status)),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-clientGone:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// streamLogChunk sends any log bytes past offset and returns the new offset.
func (h *Handler) streamLogChunk(conn *websocket.Conn, j *jobv.Job, offset int64) int64 {
	f, err := os.Open(h.runner.LogPath(j))
	if err != nil {
		return offset
	}
	defer f.Close()
	if _, err = f.Seek(offset, io.SeekStart); err != nil {
		return offset
	}
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return offset
	}
	if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return offset
	}
	return offset + int64(len(data))
}
