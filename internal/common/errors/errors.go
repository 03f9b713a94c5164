// Package errors provides standardized error handling for the enrichment
// and recommendation pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// External knowledge-store / extraction service errors
const (
	ErrCodeExternalTimeout     ErrorCode = "EXTERNAL_TIMEOUT"
	ErrCodeExternalUnavailable ErrorCode = "EXTERNAL_UNAVAILABLE"
	ErrCodeMalformedResponse   ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeCircuitOpen         ErrorCode = "CIRCUIT_OPEN"

	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	ErrCodeEvaluationFailed ErrorCode = "EVALUATION_FAILED"
	ErrCodeGraphSyncFailed  ErrorCode = "GRAPH_SYNC_FAILED"
)

// Primary-store errors
const (
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeQueryFailed    ErrorCode = "QUERY_FAILED"
	ErrCodeLinkingFailed  ErrorCode = "LINKING_FAILED"
)

// Pipeline / infrastructure errors
const (
	ErrCodeQueueFull     ErrorCode = "QUEUE_FULL"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// PipelineError is the canonical error carried between pipeline components.
type PipelineError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("PipelineError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Constructors
// ==========================

func NewExternalTimeoutError(operation string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeExternalTimeout,
		Message:   "external service call timed out",
		Details:   operation,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalUnavailableError(operation string, err error) *PipelineError {
	details := operation
	if err != nil {
		details = fmt.Sprintf("%s: %v", operation, err)
	}
	return &PipelineError{
		Code:      ErrCodeExternalUnavailable,
		Message:   "external service unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewMalformedResponseError(operation, details string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeMalformedResponse,
		Message:   "external service returned a malformed response",
		Details:   fmt.Sprintf("%s: %s", operation, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCircuitOpenError(operation string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeCircuitOpen,
		Message:   "circuit breaker open, call rejected",
		Details:   operation,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExtractionFailedError(err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeExtractionFailed,
		Message:   "skill extraction failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewEvaluationFailedError(err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeEvaluationFailed,
		Message:   "candidate evaluation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewGraphSyncFailedError(nodeID string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeGraphSyncFailed,
		Message:   "graph node sync failed",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"nodeId": nodeID},
		Timestamp: time.Now().UTC(),
	}
}

func NewRecordNotFoundError(kind, id string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeRecordNotFound,
		Message:   fmt.Sprintf("%s not found", kind),
		Details:   id,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryFailedError(operation string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeQueryFailed,
		Message:   "primary store query failed",
		Details:   fmt.Sprintf("%s: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewLinkingFailedError(skill string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeLinkingFailed,
		Message:   "skill linking failed",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"skill": skill},
		Timestamp: time.Now().UTC(),
	}
}

func NewQueueFullError(kind string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeQueueFull,
		Message:   "background task queue is full",
		Details:   kind,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewConfigInvalidError(details string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeConfigInvalid,
		Message:   "invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification helpers
// ==========================

// CodeOf extracts the error code, or INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether the task pool may retry the operation.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsExternalFailure reports whether the error should engage the fallback
// chain. Malformed responses are handled the same way as transient outages.
func IsExternalFailure(err error) bool {
	switch CodeOf(err) {
	case ErrCodeExternalTimeout, ErrCodeExternalUnavailable, ErrCodeMalformedResponse, ErrCodeCircuitOpen:
		return true
	}
	return false
}

// IsNotFound reports a primary-store integrity miss; affected identifiers are
// filtered from result sets rather than failing the whole operation.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeRecordNotFound
}
