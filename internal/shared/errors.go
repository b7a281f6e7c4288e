package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuth             = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Catalog and provider errors
	ErrUpstream           = fmt.Errorf("upstream request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("not found")
	ErrQuotaExceeded      = fmt.Errorf("quota exceeded")

	// Tool dispatch errors
	ErrDispatch        = fmt.Errorf("dispatch failed")
	ErrUnknownTool     = fmt.Errorf("%w: unknown tool", ErrDispatch)
	ErrInvalidArgument = fmt.Errorf("%w: invalid argument", ErrDispatch)
	ErrMaxRounds       = fmt.Errorf("%w: too many tool-call rounds", ErrDispatch)

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Session errors
	ErrSessionNotFound = fmt.Errorf("session not found")
)
