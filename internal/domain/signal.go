// Package domain defines the core types and gateway interfaces shared by the
// copy-trade executor: detected signals, account snapshots, and the contracts
// implemented by the Postgres store and the Hyperliquid client.
package domain

import "time"

// Side is the direction of a position or signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Valid reports whether s is one of the two known directions.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// DefaultLeverage is used when a signal row carries no usable leverage value.
const DefaultLeverage = 10

// Signal is one row of the new_positions table: a position detected on a
// tracked wallet that this process should replicate. Rows are written by the
// upstream detector, read once here, and deleted after a single processing
// attempt. Most fields are informational and carried through for logging and
// notifications only; decisions use Coin, Side, and Leverage.
type Signal struct {
	ID                int64
	PositionSignature string
	Coin              string
	Side              Side
	Size              float64
	EntryPrice        float64
	CurrentPrice      float64
	UnrealizedPnL     float64
	PnLPercent        float64
	Leverage          int
	MarginUsed        float64
	LiquidationPrice  float64
	DetectedAt        time.Time
}

// RequestedLeverage returns the leverage to attempt first, falling back to
// DefaultLeverage when the stored value is missing or non-positive.
func (s Signal) RequestedLeverage() int {
	if s.Leverage <= 0 {
		return DefaultLeverage
	}
	return s.Leverage
}

// OutcomeKind is the terminal state of one signal's processing attempt. Every
// signal reaches exactly one of these before it is deleted from the store.
type OutcomeKind string

const (
	OutcomeAlreadyOpen       OutcomeKind = "already_open"
	OutcomeInsufficientFunds OutcomeKind = "insufficient_funds"
	OutcomeOpened            OutcomeKind = "opened"
	OutcomeExhausted         OutcomeKind = "all_leverages_exhausted"
)

// Outcome describes how one signal was resolved.
type Outcome struct {
	Kind        OutcomeKind
	Coin        string
	Side        Side
	NotionalUSD float64
	// Leverage is the leverage the order was placed with (Kind == opened),
	// or the requested leverage otherwise.
	Leverage int
}

// Opened reports whether an order was actually placed.
func (o Outcome) Opened() bool {
	return o.Kind == OutcomeOpened
}
