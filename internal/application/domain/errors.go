package domain

import "errors"

// Error taxonomy for the entropy pipeline. Transport and JSON errors
// from the HTTP client are wrapped with %w by the adapter; the
// sentinels below are what callers branch on.
var (
	// ErrChainNotFound means no chain in the beacon's listing matched
	// the expected chain name.
	ErrChainNotFound = errors.New("beacon chain not found")

	// ErrNoUsableEntropy means the backwards round walk exhausted its
	// attempt window without finding a usable randomness pulse.
	ErrNoUsableEntropy = errors.New("no usable entropy pulse found")

	// ErrInvalidInput rejects malformed simulation requests before any
	// trial runs (mismatched weights length, non-finite weights).
	ErrInvalidInput = errors.New("invalid simulation input")
)
