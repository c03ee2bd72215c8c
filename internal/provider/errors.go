package provider

import (
	"errors"
	"fmt"
)

// Closed error taxonomy surfaced by every adapter. Callers match with
// errors.Is; the orchestrator translates these into operator-facing codes.
var (
	ErrAuthInvalid = errors.New("provider: invalid credentials")
	ErrRateLimited = errors.New("provider: rate limited")
	ErrNotFound    = errors.New("provider: resource not found")
	ErrValidation  = errors.New("provider: request rejected")
	ErrUnreachable = errors.New("provider: unreachable")
	ErrProvider    = errors.New("provider: provider error")

	// ErrEnumerationExceeded means a list operation hit the page cap and
	// the result would be truncated. Callers must never receive a silently
	// partial list.
	ErrEnumerationExceeded = errors.New("provider: resource enumeration exceeded page cap")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func statusError(name string, status int, detail string) error {
	var kind error
	switch {
	case status == 401 || status == 403:
		kind = ErrAuthInvalid
	case status == 429:
		kind = ErrRateLimited
	case status == 404:
		kind = ErrNotFound
	case status >= 400 && status < 500:
		kind = ErrValidation
	default:
		kind = ErrProvider
	}
	if detail == "" {
		return fmt.Errorf("%s: status %d: %w", name, status, kind)
	}
	return fmt.Errorf("%s: status %d: %s: %w", name, status, detail, kind)
}
