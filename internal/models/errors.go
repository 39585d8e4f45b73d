package models

import "errors"

// Validation errors. Returned before any I/O is attempted.
var (
	ErrInvalidTicker    = errors.New("invalid ticker")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidBar       = errors.New("invalid bar: high below low")
	ErrInvalidVolume    = errors.New("invalid volume")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidAlertID   = errors.New("invalid alert id")
)

// Pipeline errors.
var (
	// ErrInsufficientData means the price series is shorter than the
	// longest configured indicator period. Not a failure of the series
	// itself, only of its length.
	ErrInsufficientData = errors.New("insufficient data for indicator computation")

	// ErrUpstreamUnavailable wraps adapter and market data failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrDuplicateAlert signals the dedup window suppressed an alert.
	ErrDuplicateAlert = errors.New("duplicate alert within dedup window")

	// ErrRateLimited signals the per-ticker alert rate limit suppressed
	// an alert.
	ErrRateLimited = errors.New("alert rate limit exceeded")

	// ErrNotQualified signals a score below the qualification gate.
	ErrNotQualified = errors.New("score does not qualify for alerting")
)
