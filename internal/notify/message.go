package notify

import (
	"fmt"

	"github.com/hlcopy/hlcopybot/internal/domain"
)

// Event types emitted by the reconciliation engine.
const (
	EventPositionOpened  = "position_opened"
	EventPositionFailed  = "position_failed"
	EventPositionSkipped = "position_skipped"
)

// OutcomeEvent maps a terminal outcome to its notification event type.
func OutcomeEvent(o domain.Outcome) string {
	switch o.Kind {
	case domain.OutcomeOpened:
		return EventPositionOpened
	case domain.OutcomeExhausted:
		return EventPositionFailed
	default:
		return EventPositionSkipped
	}
}

// FormatOutcome renders the fixed outcome template for a processed signal.
func FormatOutcome(o domain.Outcome) (title, message string) {
	switch o.Kind {
	case domain.OutcomeOpened:
		title = "✅ Position OPENED"
	case domain.OutcomeExhausted:
		title = "❌ Position FAILED"
	case domain.OutcomeAlreadyOpen:
		title = "⏭ Position SKIPPED (already open)"
	case domain.OutcomeInsufficientFunds:
		title = "⏭ Position SKIPPED (insufficient funds)"
	default:
		title = "Position " + string(o.Kind)
	}

	message = fmt.Sprintf(
		"Coin: %s\nSide: %s\nSize: $%.2f\nLeverage: %dx",
		o.Coin, o.Side, o.NotionalUSD, o.Leverage,
	)
	return title, message
}
