package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents connection-level failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents transport or context deadlines.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassDecode represents response bodies that could not be decoded.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassEncode represents request bodies that could not be encoded.
	ErrorClassEncode ErrorClass = "encode"

	// ErrorClassCache represents a cache backend that could not be opened.
	ErrorClassCache ErrorClass = "cache"
)

// Common errors returned by the client.
var (
	// ErrDecode is wrapped by RequestErrors of class ErrorClassDecode.
	ErrDecode = errors.New("decode response body")

	// ErrEncode is wrapped by RequestErrors of class ErrorClassEncode.
	ErrEncode = errors.New("encode request body")
)

// RequestError represents a failed request with the attempted URL and cause.
// It is never retried by the client.
type RequestError struct {
	Method string
	URL    string
	Class  ErrorClass
	Err    error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Class, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// classifyTransportError categorizes an error returned by http.Client.Do.
func classifyTransportError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassNetwork
}
