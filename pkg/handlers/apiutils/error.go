/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
)

// NexusApiError is the unified error response: HTTP code, stable error code,
// and message.
type NexusApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Error returns the error message string.
func (err *NexusApiError) Error() string {
	return err.ErrorMessage
}

// AbortWithApiError converts any error into the standardized response format
// and aborts the request with it.
func AbortWithApiError(c *gin.Context, err error) {
	handleErrors(c, err)
	rsp := convertToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

// convertToErrResponse normalizes an error to a NexusApiError. StatusError
// values carry their HTTP code and reason already; anything else becomes an
// internal error.
func convertToErrResponse(err error) NexusApiError {
	var result *NexusApiError
	if errors.As(err, &result) {
		return *result
	}
	var statusErr *apierrors.StatusError
	if !errors.As(err, &statusErr) {
		switch {
		case apierrors.IsNotFound(err):
			statusErr = nexuserrors.NewNotFoundWithMessage(err.Error())
		case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
			statusErr = nexuserrors.NewBadRequest(err.Error())
		case apierrors.IsAlreadyExists(err):
			statusErr = nexuserrors.NewAlreadyExist(err.Error())
		case apierrors.IsForbidden(err):
			statusErr = nexuserrors.NewForbidden(err.Error())
		default:
			statusErr = nexuserrors.NewInternalError(err.Error())
		}
	}
	return NexusApiError{
		HttpCode:     int(statusErr.Status().Code),
		ErrorCode:    string(statusErr.Status().Reason),
		ErrorMessage: statusErr.Error(),
	}
}

// handleErrors records single errors or aggregates on the gin context.
func handleErrors(c *gin.Context, err error) {
	var errs []error
	if aggregate, ok := err.(utilerrors.Aggregate); ok {
		errs = aggregate.Errors()
	} else {
		errs = []error{err}
	}
	for _, val := range errs {
		if val != nil {
			_ = c.Error(val)
		}
	}
}
