package main

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindRequestFailed   ErrorKind = "REQUEST_FAILED"
	KindBackendRejected ErrorKind = "BACKEND_REJECTED"
	KindInvalidInput    ErrorKind = "INVALID_INPUT"
)

// APIError is what every client operation fails with.
type APIError struct {
	Op      string
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// TransportError carries the raw failure of a single HTTP exchange.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var errMissingMessage = errors.New("response envelope has no message")

func requestFailed(op string, err error) *APIError {
	return &APIError{Op: op, Kind: KindRequestFailed, Message: err.Error(), Err: err}
}

func backendRejected(op, message string) *APIError {
	if message == "" {
		message = "unknown error"
	}
	return &APIError{Op: op, Kind: KindBackendRejected, Message: message}
}

func invalidInput(op, format string, args ...any) *APIError {
	return &APIError{Op: op, Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the error kind of err, or "" when err is not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// MessageOf returns the user-facing part of err: the backend message for
// rejections, the raw cause for everything else.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
