/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAuthEngine(apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(Auth(apiKey))
	e.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return e
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	e := newAuthEngine("")
	rsp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	e.ServeHTTP(rsp, req)
	assert.Equal(t, http.StatusOK, rsp.Code)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	e := newAuthEngine("secret")
	rsp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	e.ServeHTTP(rsp, req)
	assert.Equal(t, http.StatusUnauthorized, rsp.Code)
}

func TestAuthRejectsWrongToken(t *testing.T) {
	e := newAuthEngine("secret")
	rsp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer nope")
	e.ServeHTTP(rsp, req)
	assert.Equal(t, http.StatusUnauthorized, rsp.Code)
}

func TestAuthAcceptsToken(t *testing.T) {
	e := newAuthEngine("secret")
	rsp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer secret")
	e.ServeHTTP(rsp, req)
	assert.Equal(t, http.StatusOK, rsp.Code)
}
