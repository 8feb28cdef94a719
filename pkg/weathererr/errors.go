// Package weathererr implements the domain error taxonomy: the
// six kinds of failure the system distinguishes, surfaced consistently
// regardless of which aggregate or subsystem raised them.
package weathererr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way command callers and the Decision
// Engine need to treat it differently: domain violations are never
// retried, concurrency conflicts are retried then surfaced, provider and
// projection failures have their own recovery paths.
type Kind int

const (
	// KindDomainViolation covers AlreadyMonitored, NoLocations,
	// AlreadyStarted, NotStarted, Finished — reported to the caller,
	// never retried.
	KindDomainViolation Kind = iota
	// KindConcurrencyConflict is retried inside the Decision Engine;
	// surfaced as KindInfrastructure if retries are exhausted.
	KindConcurrencyConflict
	// KindProviderFailure covers upstream weather-provider errors;
	// transient ones are retried by the HTTP client, permanent ones
	// become a per-zone UpdateLocationFailed inside the saga.
	KindProviderFailure
	// KindProjectionFailure rolls back the handler's transaction; the
	// listener retries from its last committed checkpoint.
	KindProjectionFailure
	// KindParse covers parse/URL/serialization failures, surfaced as a
	// domain error to the command caller (or as KindProviderFailure when
	// the parse failure is of a provider response).
	KindParse
	// KindInfrastructure covers exhausted retries and other failures
	// with no domain meaning.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindDomainViolation:
		return "domain_violation"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindProviderFailure:
		return "provider_failure"
	case KindProjectionFailure:
		return "projection_failure"
	case KindParse:
		return "parse"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is a structured domain error: a Kind plus a caller-facing Code
// (e.g. "AlreadyMonitored") and a wrapped cause.
type Error struct {
	Kind  Kind
	Code  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Code, so callers
// can write errors.Is(err, weathererr.New(weathererr.KindDomainViolation, "AlreadyMonitored", nil)).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New constructs a domain error of the given kind and caller-facing code.
func New(kind Kind, code string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Cause: cause}
}

// Domain-violation codes.
var (
	AlreadyMonitored = func(zone string) *Error {
		return New(KindDomainViolation, "AlreadyMonitored", fmt.Errorf("zone %q already monitored", zone))
	}
	NoLocations = New(KindDomainViolation, "NoLocations", errors.New("update requires at least one zone"))
	AlreadyStarted = func(updateID string) *Error {
		return New(KindDomainViolation, "AlreadyStarted", fmt.Errorf("update %q already started", updateID))
	}
	NotStarted = func(updateID, cmd string) *Error {
		return New(KindDomainViolation, "NotStarted", fmt.Errorf("update %q has not started: %s", updateID, cmd))
	}
	Finished = func(updateID, cmd string) *Error {
		return New(KindDomainViolation, "Finished", fmt.Errorf("update %q already finished: %s", updateID, cmd))
	}
)

// Conflict reports that an append was rejected because the expected
// stream version was stale. The Decision Engine retries this kind itself;
// it only escapes to a caller as KindInfrastructure once bounded retries
// are exhausted.
var Conflict = errors.New("weathererr: expected version conflict")
