package domain

import "errors"

var (
	// ErrUpstreamUnavailable marks a failed account snapshot fetch. The
	// current cycle aborts with no deletions so signals survive an outage.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedUpstream marks an exchange response that decoded but did
	// not have the expected shape.
	ErrMalformedUpstream = errors.New("malformed upstream data")

	// ErrAllLeveragesExhausted is terminal for a signal: every candidate on
	// the leverage ladder was rejected. The signal is still deleted.
	ErrAllLeveragesExhausted = errors.New("all leverages exhausted")

	// ErrInsufficientFunds means the computed notional was zero or negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")
)
