// Package testutil provides testing utilities for Gaffer.
//
// This package contains mock errors and test helpers used across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
// These errors are used to simulate various failure scenarios in tests.
var (
	// ErrMockForgeFailed indicates a mock forge operation failed (used in tests).
	ErrMockForgeFailed = errors.New("forge operation failed")

	// ErrMockAPIError indicates a mock API error occurred (used in tests).
	ErrMockAPIError = errors.New("API error")

	// ErrMockNotFound indicates a mock resource was not found (used in tests).
	ErrMockNotFound = errors.New("not found")

	// ErrMockNetwork indicates a mock network error occurred (used in tests).
	ErrMockNetwork = errors.New("network error")

	// ErrMockGitFailed indicates a mock git command failed (used in tests).
	ErrMockGitFailed = errors.New("git command failed")

	// ErrMockSinkUnavailable indicates a mock audit sink is unavailable (used in tests).
	ErrMockSinkUnavailable = errors.New("audit sink unavailable")

	// ErrMockRecoveryFailed indicates a mock lifecycle recovery failed (used in tests).
	ErrMockRecoveryFailed = errors.New("lifecycle recovery failed")
)
