// errors.go: structured error handling for xanthos cache operations
//
// This file provides structured error types using the go-errors library,
// enabling rich error context, categorization, and standardized error codes
// for all cache operations.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package xanthos

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for Xanthos cache operations
const (
	// Configuration errors
	ErrCodeInvalidConfig     errors.ErrorCode = "XANTHOS_INVALID_CONFIG"
	ErrCodeInvalidMaximum    errors.ErrorCode = "XANTHOS_INVALID_MAXIMUM"
	ErrCodeWeigherRequired   errors.ErrorCode = "XANTHOS_WEIGHER_REQUIRED"
	ErrCodeWeigherForbidden  errors.ErrorCode = "XANTHOS_WEIGHER_FORBIDDEN"
	ErrCodeInvalidExpiration errors.ErrorCode = "XANTHOS_INVALID_EXPIRATION"
	ErrCodeLoaderRequired    errors.ErrorCode = "XANTHOS_LOADER_REQUIRED"

	// Input errors
	ErrCodeNilLoader  errors.ErrorCode = "XANTHOS_NIL_LOADER"
	ErrCodeNilWeigher errors.ErrorCode = "XANTHOS_NIL_WEIGHER"

	// Loader errors
	ErrCodeLoaderFailed    errors.ErrorCode = "XANTHOS_LOADER_FAILED"
	ErrCodeLoaderCancelled errors.ErrorCode = "XANTHOS_LOADER_CANCELLED"

	// Callback errors
	ErrCodeWriterFailed errors.ErrorCode = "XANTHOS_WRITER_FAILED"

	// Internal errors
	ErrCodePanicRecovered errors.ErrorCode = "XANTHOS_PANIC_RECOVERED"
)

// Common error messages
const (
	msgInvalidMaximum    = "invalid maximum: must be non-negative"
	msgWeigherRequired   = "maximum weight requires a weigher"
	msgWeigherForbidden  = "maximum size cannot be combined with a weigher"
	msgInvalidExpiration = "invalid expiration: duration must be non-negative"
	msgLoaderRequired    = "refresh-after-write requires a loader"
	msgNilLoader         = "loader cannot be nil"
	msgNilWeigher        = "weigher cannot be nil"
	msgLoaderFailed      = "loader function failed"
	msgLoaderCancelled   = "loader function was cancelled"
	msgWriterFailed      = "cache writer callback failed"
	msgPanicRecovered    = "panic recovered in cache operation"
)

// NewErrInvalidMaximum creates an error for a negative maximum size or weight.
func NewErrInvalidMaximum(maximum int64) error {
	return errors.NewWithContext(ErrCodeInvalidMaximum, msgInvalidMaximum, map[string]interface{}{
		"provided_maximum": maximum,
	})
}

// NewErrWeigherRequired creates an error when MaximumWeight is set without a weigher.
func NewErrWeigherRequired(maximumWeight int64) error {
	return errors.NewWithField(ErrCodeWeigherRequired, msgWeigherRequired, "maximum_weight", fmt.Sprintf("%d", maximumWeight))
}

// NewErrWeigherForbidden creates an error when MaximumSize is combined with a weigher.
func NewErrWeigherForbidden(maximumSize int64) error {
	return errors.NewWithField(ErrCodeWeigherForbidden, msgWeigherForbidden, "maximum_size", fmt.Sprintf("%d", maximumSize))
}

// NewErrInvalidExpiration creates an error for a negative expiration duration.
func NewErrInvalidExpiration(option string, duration interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidExpiration, msgInvalidExpiration, map[string]interface{}{
		"option":   option,
		"duration": duration,
	})
}

// NewErrLoaderRequired creates an error when RefreshAfterWrite is set without a loader.
func NewErrLoaderRequired() error {
	return errors.NewWithField(ErrCodeLoaderRequired, msgLoaderRequired, "option", "refresh_after_write")
}

// NewErrNilLoader creates an error when a load operation receives a nil loader.
func NewErrNilLoader(operation string) error {
	return errors.NewWithField(ErrCodeNilLoader, msgNilLoader, "operation", operation)
}

// NewErrLoaderFailed wraps an error returned by a user loader.
func NewErrLoaderFailed(cause error) error {
	return errors.Wrap(cause, ErrCodeLoaderFailed, msgLoaderFailed).AsRetryable()
}

// NewErrLoaderCancelled creates an error when a load is cancelled by context.
func NewErrLoaderCancelled(cause error) error {
	return errors.Wrap(cause, ErrCodeLoaderCancelled, msgLoaderCancelled)
}

// NewErrWriterFailed creates an error when a CacheWriter callback panics.
func NewErrWriterFailed(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodeWriterFailed, msgWriterFailed, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// NewErrPanicRecovered creates an error when a panic is recovered.
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// IsConfigError checks whether err is a configuration validation error.
func IsConfigError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrCodeInvalidConfig || code == ErrCodeInvalidMaximum ||
		code == ErrCodeWeigherRequired || code == ErrCodeWeigherForbidden ||
		code == ErrCodeInvalidExpiration || code == ErrCodeLoaderRequired
}

// IsLoaderError checks whether err originated in a user loader.
func IsLoaderError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrCodeLoaderFailed || code == ErrCodeLoaderCancelled || code == ErrCodeNilLoader
}

// IsRetryable checks whether the operation that produced err can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from an error.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var xerr *errors.Error
	if goerrors.As(err, &xerr) {
		return xerr.Context
	}
	return nil
}
