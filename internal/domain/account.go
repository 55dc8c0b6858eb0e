package domain

// OpenPosition is a currently held position on the exchange account, derived
// from the account snapshot. Size is always positive; direction is in Side.
type OpenPosition struct {
	Coin string
	Side Side
	Size float64
}

// AccountSnapshot is the account state fetched once per cycle and shared
// read-only by every signal processed in that cycle. It is intentionally not
// refreshed mid-cycle: orders placed earlier in a cycle do not affect sizing
// or existence checks for later signals in the same cycle.
type AccountSnapshot struct {
	// Equity is the account value in quote currency (USDC). Zero when the
	// upstream reported nothing parsable.
	Equity    float64
	Positions []OpenPosition
}

// HasOpen reports whether the account already holds a position with the given
// coin and direction.
func (s AccountSnapshot) HasOpen(coin string, side Side) bool {
	for _, p := range s.Positions {
		if p.Coin == coin && p.Side == side {
			return true
		}
	}
	return false
}
