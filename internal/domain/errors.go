package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a submission failed.
type ErrorKind string

const (
	KindOffline ErrorKind = "offline"
	KindNetwork ErrorKind = "network"
	KindTimeout ErrorKind = "timeout"
	KindServer  ErrorKind = "server"
	KindUnknown ErrorKind = "unknown"
)

// Sentinel errors for receipt files that could not be attached. They are
// per-file failures, reported as warnings rather than failing the claim.
var (
	ErrOverBudget      = errors.New("file cannot be brought under the size budget")
	ErrUnsupportedFile = errors.New("file type cannot be embedded")
)

// Error types for consistent error handling across the service.

// ErrOffline indicates connectivity was not available before sending.
type ErrOffline struct {
	Err error
}

func (e *ErrOffline) Error() string {
	return fmt.Sprintf("offline: %v", e.Err)
}

func (e *ErrOffline) Unwrap() error {
	return e.Err
}

// ErrNetwork indicates a transport-level failure reaching the endpoint.
type ErrNetwork struct {
	Err error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrServer indicates the endpoint responded with a non-success status.
type ErrServer struct {
	StatusCode int
	Body       string
}

func (e *ErrServer) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrRender indicates the summary or receipts PDF could not be produced.
type ErrRender struct {
	Stage string
	Err   error
}

func (e *ErrRender) Error() string {
	return fmt.Sprintf("pdf generation failed [%s]: %v", e.Stage, e.Err)
}

func (e *ErrRender) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConfig indicates a missing or invalid configuration value.
type ErrConfig struct {
	Key     string
	Message string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Message)
}

// KindOf maps an error onto the submission error taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var offline *ErrOffline
	var timeout *ErrTimeout
	var server *ErrServer
	var network *ErrNetwork
	var circuitOpen *ErrCircuitOpen

	switch {
	case errors.As(err, &offline):
		return KindOffline
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &server):
		return KindServer
	case errors.As(err, &network), errors.As(err, &circuitOpen):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// UserMessage is the one human-readable message shown for a terminal failure.
func UserMessage(kind ErrorKind) string {
	switch kind {
	case KindOffline:
		return "You appear to be offline. Check your connection and submit again."
	case KindNetwork:
		return "The claim could not reach the accounting system. Please try again shortly."
	case KindTimeout:
		return "The accounting system took too long to respond. Please try again."
	case KindServer:
		return "The accounting system rejected the claim. Please try again or contact finance."
	default:
		return "Something went wrong while preparing the claim. Please try again."
	}
}

// HTTPStatus maps an error kind to the status returned by the claims API.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindOffline:
		return http.StatusServiceUnavailable
	case KindNetwork, KindServer:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
