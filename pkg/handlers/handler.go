/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers implements the HTTP/JSON surface of the daemon.
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	"github.com/AMD-AIG-AIMA/nexus/pkg/gpu"
	"github.com/AMD-AIG-AIMA/nexus/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/nexus/pkg/health"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/notification"
	jsonutils "github.com/AMD-AIG-AIMA/nexus/pkg/utils/json"
)

const jsonContentType = "application/json"

type handleFunc func(c *gin.Context) (interface{}, error)

// handle runs the endpoint logic and writes either the response object or the
// standardized error. A nil response with a previously set status writes no
// body.
func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	if c.Writer.Status() > 0 && c.Writer.Status() != http.StatusOK {
		code = c.Writer.Status()
	}
	if response == nil {
		c.Status(code)
		return
	}
	switch responseType := response.(type) {
	case []byte:
		c.Data(code, jsonContentType, responseType)
	case string:
		c.Data(code, jsonContentType, []byte(responseType))
	default:
		c.JSON(code, responseType)
	}
}

// Handler carries the dependencies of the HTTP surface.
type Handler struct {
	node          string
	dbClient      *dbclient.Client
	runner        *jobv.Runner
	lister        gpu.Lister
	notifier      *notification.Manager
	checker       *health.Checker
	serverLogPath string
	startedAt     time.Time
}

// NewHandler assembles the HTTP handler set.
func NewHandler(node string, dbClient *dbclient.Client, runner *jobv.Runner, lister gpu.Lister,
	notifier *notification.Manager, checker *health.Checker, serverLogPath string) *Handler {
	return &Handler{
		node:          node,
		dbClient:      dbClient,
		runner:        runner,
		lister:        lister,
		notifier:      notifier,
		checker:       checker,
		serverLogPath: serverLogPath,
		startedAt:     time.Now(),
	}
}

// parseRequestBody reads and unmarshals the request body into obj.
func parseRequestBody(c *gin.Context, obj interface{}) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nexuserrors.NewBadRequest("failed to read request body")
	}
	if err = jsonutils.Unmarshal(body, obj); err != nil {
		return nexuserrors.NewBadRequest(err.Error())
	}
	return nil
}
