package executor

import "github.com/hlcopy/hlcopybot/internal/domain"

// NotionalUSD computes the order size as a percentage of account equity.
// A snapshot with zero or negative equity yields 0, which callers must treat
// as a hard insufficient-funds skip, never as a valid order size.
func NotionalUSD(snapshot domain.AccountSnapshot, percent float64) float64 {
	if snapshot.Equity <= 0 {
		return 0
	}
	return snapshot.Equity * percent / 100
}
