package executor

import "github.com/hlcopy/hlcopybot/internal/domain"

// leverageFallbacks is the descending set of conservative leverage values
// tried after the requested leverage is rejected. Lower leverage is more
// likely to be accepted under margin limits, so the ladder walks down.
var leverageFallbacks = [...]int{20, 10, 5, 3, 1}

// LeverageLadder builds the ordered, duplicate-free sequence of leverage
// candidates for one signal: the requested leverage first, then every
// fallback strictly below it, preserving the descending fallback order.
// A non-positive request falls back to domain.DefaultLeverage.
func LeverageLadder(requested int) []int {
	if requested <= 0 {
		requested = domain.DefaultLeverage
	}

	ladder := make([]int, 0, len(leverageFallbacks)+1)
	ladder = append(ladder, requested)
	for _, lev := range leverageFallbacks {
		if lev < requested {
			ladder = append(ladder, lev)
		}
	}
	return ladder
}
