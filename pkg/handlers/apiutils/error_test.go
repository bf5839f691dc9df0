/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
)

func TestError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		errorCode string
		httpCode  int
	}{
		{
			"fmt.error",
			fmt.Errorf("test"),
			nexuserrors.InternalError,
			http.StatusInternalServerError,
		},
		{
			"nexusErrors.badRequest",
			nexuserrors.NewBadRequest("test"),
			nexuserrors.BadRequest,
			http.StatusBadRequest,
		},
		{
			"nexusErrors.notFound",
			nexuserrors.NewNotFound(nexuserrors.JobKind, "abc123"),
			nexuserrors.JobNotFound,
			http.StatusNotFound,
		},
		{
			"nexusErrors.validation",
			nexuserrors.NewValidation("invalid job", nexuserrors.FieldCause("command", "command is required")),
			nexuserrors.Validation,
			http.StatusUnprocessableEntity,
		},
		{
			"nexusErrors.jobNotQueued",
			nexuserrors.NewJobNotQueued("abc123", "running"),
			nexuserrors.JobNotQueued,
			http.StatusBadRequest,
		},
	}
	gin.SetMode(gin.ReleaseMode)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rsp := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rsp)
			AbortWithApiError(c, test.err)
			assert.Equal(t, rsp.Code, test.httpCode)

			apiErr := &NexusApiError{}
			err := json.Unmarshal(rsp.Body.Bytes(), apiErr)
			assert.NilError(t, err)
			assert.Equal(t, apiErr.ErrorCode, test.errorCode)
		})
	}
}
