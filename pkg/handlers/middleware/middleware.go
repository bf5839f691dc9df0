/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package middleware carries the cross-cutting gin middleware of the API:
// request logging, bearer-token auth, and prometheus accounting.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	"github.com/AMD-AIG-AIMA/nexus/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/nexus/pkg/metrics"
)

const bearerPrefix = "Bearer "

// Logger logs one line per request with method, path, status, and latency.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		klog.Infof("%s %s %d (%v)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// Auth enforces a shared bearer token. An empty key disables authentication.
func Auth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, bearerPrefix)
		if header == token || token != apiKey {
			apiutils.AbortWithApiError(c, nexuserrors.NewUnauthorized("invalid or missing api key"))
			return
		}
		c.Next()
	}
}

// Prometheus counts requests by method, route template, and status code.
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HttpRequests.WithLabelValues(c.Request.Method, path,
			strconv.Itoa(c.Writer.Status())).Inc()
	}
}
