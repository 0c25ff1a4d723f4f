package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNotFound is returned when a lookup matches no recipe.
	ErrNotFound = errors.New("recipe not found")
)

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport-level failures (offline).
	ErrorClassNetwork ErrorClass = "network"
)

// UpstreamError is a failed upstream request with the context the UI
// needs: the status code for HTTP errors, and the Offline flag that
// distinguishes "you appear offline" from "the request failed upstream"
// so callers can choose their retry affordance.
type UpstreamError struct {
	StatusCode int
	Offline    bool
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Offline {
		if e.Err != nil {
			return fmt.Sprintf("upstream unreachable: %s: %v", e.Message, e.Err)
		}
		return fmt.Sprintf("upstream unreachable: %s", e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Class categorizes the error for retry handling and observability.
func (e *UpstreamError) Class() ErrorClass {
	switch {
	case e.Offline:
		return ErrorClassNetwork
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrorClassClient
	case e.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// IsOffline reports whether err represents a transport-level failure.
func IsOffline(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.Offline
}

// shouldRetry determines if an error class is worth retrying.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassClient:
		// 4xx errors will not get better on retry
		return false
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// classify extracts the error class, defaulting to network for plain
// transport errors that were not wrapped.
func classify(err error) ErrorClass {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Class()
	}
	return ErrorClassNetwork
}
