/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const NexusPrefix = "Nexus."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00-99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Job-related errors
   02: GPU-related errors
   03: Artifact-related errors
   [yyy] Error code range (000-999)
*/

// public: 00xxx
const (
	InternalError = NexusPrefix + "00001"
	BadRequest    = NexusPrefix + "00002"
	Forbidden     = NexusPrefix + "00003"
	AlreadyExist  = NexusPrefix + "00004"
	NotFound      = NexusPrefix + "00005"
	Unauthorized  = NexusPrefix + "00006"
	Validation    = NexusPrefix + "00007"
	DatabaseError = NexusPrefix + "00008"
)

// job: 01xxx
const (
	JobNotFound    = NexusPrefix + "01001"
	JobNotQueued   = NexusPrefix + "01002"
	RunnerError    = NexusPrefix + "01003"
	JobNotRunning  = NexusPrefix + "01004"
	JobNotFinished = NexusPrefix + "01005"
)

// gpu: 02xxx
const (
	GpuNotFound = NexusPrefix + "02001"
	GpuError    = NexusPrefix + "02002"
)

// artifact: 03xxx
const (
	ArtifactNotFound = NexusPrefix + "03001"
)

// Kinds used in not-found details.
const (
	JobKind      = "Job"
	GpuKind      = "GPU"
	ArtifactKind = "Artifact"
)

// IsNexus returns true if the specified error carries a nexus error reason.
func IsNexus(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), NexusPrefix)
}

func IsAlreadyExist(err error) bool {
	return apierrors.ReasonForError(err) == AlreadyExist
}

func IsBadRequest(err error) bool {
	return apierrors.ReasonForError(err) == BadRequest
}

func IsInternal(err error) bool {
	return apierrors.ReasonForError(err) == InternalError
}

func IsValidation(err error) bool {
	return apierrors.ReasonForError(err) == Validation
}

// IsInvalidState reports whether the error rejects a lifecycle transition the
// job's current status does not allow.
func IsInvalidState(err error) bool {
	reason := apierrors.ReasonForError(err)
	return reason == JobNotQueued || reason == JobNotRunning || reason == JobNotFinished
}

func IsNotFound(err error) bool {
	reason := apierrors.ReasonForError(err)
	if reason == NotFound || reason == JobNotFound || reason == GpuNotFound ||
		reason == ArtifactNotFound {
		return true
	}
	return false
}

func IgnoreNotFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsNexus(err) {
		return ""
	}
	return string(apierrors.ReasonForError(err))
}

func NewBadRequest(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  BadRequest,
		Message: fmt.Sprintf("Bad request. %s", message),
	}}
}

func NewInternalError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}}
}

func NewAlreadyExist(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  AlreadyExist,
		Message: message,
	}}
}

func NewForbidden(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusForbidden,
		Reason:  Forbidden,
		Message: message,
	}}
}

func NotFoundErrorCode(kind string) metav1.StatusReason {
	switch kind {
	case JobKind:
		return JobNotFound
	case GpuKind:
		return GpuNotFound
	case ArtifactKind:
		return ArtifactNotFound
	default:
		return NotFound
	}
}

func NewNotFound(kind, name string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusNotFound,
		Reason: NotFoundErrorCode(kind),
		Details: &metav1.StatusDetails{
			Kind: kind,
			Name: name,
		},
		Message: fmt.Sprintf("%s %s not found.", kind, name),
	}}
}

func NewNotFoundWithMessage(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  NotFound,
		Message: message,
	}}
}

func NewUnauthorized(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusUnauthorized,
		Reason:  Unauthorized,
		Message: message,
	}}
}

// NewValidation builds an unprocessable-entity error with one cause per
// rejected field.
func NewValidation(message string, causes ...metav1.StatusCause) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusUnprocessableEntity,
		Reason: Validation,
		Details: &metav1.StatusDetails{
			Causes: causes,
		},
		Message: message,
	}}
}

// FieldCause describes a single invalid request field.
func FieldCause(field, message string) metav1.StatusCause {
	return metav1.StatusCause{
		Type:    metav1.CauseTypeFieldValueInvalid,
		Field:   field,
		Message: message,
	}
}

func NewDatabaseError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  DatabaseError,
		Message: fmt.Sprintf("Database error. %s", message),
	}}
}

// NewJobNotQueued reports a state transition attempted on a job that has
// already left the queue.
func NewJobNotQueued(id, status string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  JobNotQueued,
		Message: fmt.Sprintf("job %s is %s, not queued", id, status),
	}}
}

func NewJobNotRunning(id, status string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  JobNotRunning,
		Message: fmt.Sprintf("job %s is %s, not running", id, status),
	}}
}

func NewJobNotFinished(id, status string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  JobNotFinished,
		Message: fmt.Sprintf("job %s is %s, only finished jobs can be removed", id, status),
	}}
}

func NewRunnerError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  RunnerError,
		Message: fmt.Sprintf("Runner error. %s", message),
	}}
}

func NewGpuError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  GpuError,
		Message: fmt.Sprintf("GPU error. %s", message),
	}}
}
