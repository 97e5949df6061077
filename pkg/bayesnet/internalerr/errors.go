package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidConfig = errors.New("invalid configuration")

	// Network and query errors
	ErrFormat               = errors.New("format error")
	ErrLookup               = errors.New("lookup error")
	ErrProbability          = errors.New("probability error")
	ErrInconsistentEvidence = errors.New("evidence has zero probability")
	ErrFactorTooLarge       = errors.New("factor too large")
)
