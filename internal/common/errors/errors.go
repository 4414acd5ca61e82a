// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUserNotFound           ErrorCode = "USER_NOT_FOUND"
	ErrCodeLenderNotFound         ErrorCode = "LENDER_NOT_FOUND"
	ErrCodeUserTrustScoreNotFound ErrorCode = "USER_TRUST_SCORE_NOT_FOUND"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeInsufficientTrainingData ErrorCode = "INSUFFICIENT_TRAINING_DATA"
	ErrCodeModelUnavailable         ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeScoreComputationFailed   ErrorCode = "SCORE_COMPUTATION_FAILED"
	ErrCodeModelPersistenceFailed   ErrorCode = "MODEL_PERSISTENCE_FAILED"
	ErrCodeTrainingFailed           ErrorCode = "TRAINING_FAILED"
	ErrCodeTrainingTimeout          ErrorCode = "TRAINING_TIMEOUT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheUpdateFailed        ErrorCode = "CACHE_UPDATE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUserNotFoundError creates a non-retryable missing user error.
func NewUserNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserNotFound,
		Message:   "User not found",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLenderNotFoundError creates a non-retryable missing lender error.
func NewLenderNotFoundError(lenderID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLenderNotFound,
		Message:   "Lender not found",
		Details:   fmt.Sprintf("lenderId: %s", lenderID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTrustScoreNotFoundError is raised when matching is asked for a user
// that has never been scored. The caller must not fall back to a default
// score.
func NewUserTrustScoreNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserTrustScoreNotFound,
		Message:   "No trust score on record for user",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInsufficientTrainingDataError creates a non-retryable training data error.
func NewInsufficientTrainingDataError(got, need int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInsufficientTrainingData,
		Message:   "Not enough samples to train the trust model",
		Details:   fmt.Sprintf("got %d rows, need at least %d", got, need),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelUnavailableError creates a retryable model availability error.
func NewModelUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelUnavailable,
		Message:   "Trust model is not available",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoreComputationFailedError creates a non-retryable scoring error.
func NewScoreComputationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoreComputationFailed,
		Message:   "Trust score computation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelPersistenceFailedError creates a retryable artifact persistence error.
func NewModelPersistenceFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelPersistenceFailed,
		Message:   "Model artifact persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTrainingFailedError creates a retryable training error.
func NewTrainingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTrainingFailed,
		Message:   "Trust model training failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTrainingTimeoutError creates a retryable training timeout error.
func NewTrainingTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTrainingTimeout,
		Message:   "Trust model training timed out",
		Details:   "training exceeded the worker deadline",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUpdateFailedError creates a retryable cache write error.
func NewCacheUpdateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUpdateFailed,
		Message:   "Cache update failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. The two
// sets are identical; the workflow catches errors under the same names.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUserNotFound:             "USER_NOT_FOUND",
	ErrCodeLenderNotFound:           "LENDER_NOT_FOUND",
	ErrCodeUserTrustScoreNotFound:   "USER_TRUST_SCORE_NOT_FOUND",
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodeInsufficientTrainingData: "INSUFFICIENT_TRAINING_DATA",
	ErrCodeModelUnavailable:         "MODEL_UNAVAILABLE",
	ErrCodeScoreComputationFailed:   "SCORE_COMPUTATION_FAILED",
	ErrCodeModelPersistenceFailed:   "MODEL_PERSISTENCE_FAILED",
	ErrCodeTrainingFailed:           "TRAINING_FAILED",
	ErrCodeTrainingTimeout:          "TRAINING_TIMEOUT",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeDatabaseInsertFailed:     "DATABASE_INSERT_FAILED",
	ErrCodeCacheUpdateFailed:        "CACHE_UPDATE_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeCacheUpdateFailed,
		ErrCodeModelPersistenceFailed,
		ErrCodeModelUnavailable,
		ErrCodeTrainingFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeTrainingTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "TRAINING") || strings.Contains(codeStr, "SCORE"):
		return "MODEL"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
