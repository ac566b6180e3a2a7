// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeUnauthorized  = 1003

	// Video source errors (1100-1199)
	CodeSourceUnavailable  = 1100
	CodeInsufficientFrames = 1101
	CodeDecodeFailed       = 1102
	CodeDownloadFailed     = 1103

	// Analysis errors (1200-1299)
	CodeDimensionMismatch = 1200
	CodeInvalidOptions    = 1201

	// Output errors (1300-1399)
	CodeEmptyOutput  = 1300
	CodeEncodeFailed = 1301
	CodeUploadFailed = 1302

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	if e.Detail != "" {
		return fmt.Sprintf("[%d] %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match two AppErrors by code, so sentinels like
// ErrSourceUnavailable match wrapped instances.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "Resource not found")

	// Video source
	ErrSourceUnavailable  = New(CodeSourceUnavailable, "Video source cannot be opened")
	ErrInsufficientFrames = New(CodeInsufficientFrames, "Not enough frames sampled; the video is too short or the interval too large")
	ErrDecodeFailed       = New(CodeDecodeFailed, "Frame decoding failed")
	ErrDownloadFailed     = New(CodeDownloadFailed, "Video download failed")

	// Analysis
	ErrDimensionMismatch = New(CodeDimensionMismatch, "Frame dimensions do not match")
	ErrInvalidOptions    = New(CodeInvalidOptions, "Invalid extraction options")

	// Output
	ErrEmptyOutput  = New(CodeEmptyOutput, "No slides detected; try lowering the threshold")
	ErrEncodeFailed = New(CodeEncodeFailed, "Output encoding failed")
	ErrUploadFailed = New(CodeUploadFailed, "Upload failed")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")
)
