package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrServerDown is returned when the liveness check fails at startup.
	ErrServerDown = errors.New("grobid server is down")

	// ErrRetryExhausted is returned when a bounded retry policy runs out
	// of attempts while the server keeps responding 503.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// an overload wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// Class represents a classification of a submission attempt's result.
type Class string

const (
	// ClassOK represents a 200 response whose body is the extraction result.
	ClassOK Class = "ok"

	// ClassOverloaded represents 503, the server's "busy, retry later" signal.
	ClassOverloaded Class = "overloaded"

	// ClassPermanent represents any other non-200 status. Not retried.
	ClassPermanent Class = "permanent"

	// ClassNetwork represents transport-level failures, including the
	// client's own timeout. Distinct from overload.
	ClassNetwork Class = "network"
)

// Classify maps one submission attempt to its class.
func Classify(resp *Response, err error) Class {
	if err != nil {
		return ClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return ClassOK
	case resp.StatusCode == http.StatusServiceUnavailable:
		return ClassOverloaded
	default:
		return ClassPermanent
	}
}

// retriable reports whether a class may be resolved by resubmitting.
// Only overload is: the server frees capacity eventually, while permanent
// and network failures waste attempts for the same answer.
func retriable(class Class) bool {
	return class == ClassOverloaded
}

// GrobidError represents a terminal per-file failure with its classification.
type GrobidError struct {
	StatusCode int
	Class      Class
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *GrobidError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grobid %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("grobid %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *GrobidError) Unwrap() error {
	return e.Err
}
