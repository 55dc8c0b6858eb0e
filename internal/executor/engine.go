// Package executor contains the reconciliation engine: the decision loop that
// turns pending signals into exchange orders. Each poll cycle fetches one
// account snapshot, walks every pending signal through existence check,
// sizing, and the leverage retry ladder, notifies the outcome, and deletes
// the signal from the store regardless of how it resolved.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hlcopy/hlcopybot/internal/domain"
	"github.com/hlcopy/hlcopybot/internal/metrics"
	"github.com/hlcopy/hlcopybot/internal/notify"
)

// Engine drives the per-cycle reconciliation of pending signals against the
// exchange account. It holds no state across cycles beyond its immutable
// configuration.
type Engine struct {
	signals   domain.SignalStore
	account   domain.AccountGateway
	submitter domain.OrderSubmitter
	notifier  *notify.Notifier

	wallet      string
	sizePercent float64
	logger      *slog.Logger
}

// NewEngine creates an Engine. wallet is the exchange account whose snapshot
// is reconciled against; sizePercent is the share of equity per order.
func NewEngine(
	signals domain.SignalStore,
	account domain.AccountGateway,
	submitter domain.OrderSubmitter,
	notifier *notify.Notifier,
	wallet string,
	sizePercent float64,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		signals:     signals,
		account:     account,
		submitter:   submitter,
		notifier:    notifier,
		wallet:      wallet,
		sizePercent: sizePercent,
		logger:      logger.With(slog.String("component", "engine")),
	}
}

// RunLoop runs cycles at the fixed interval until ctx is cancelled. A cycle
// failure is logged and the loop continues; the process only stops on
// cancellation. Cancellation is observed between cycles, never mid-cycle.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) error {
	e.logger.InfoContext(ctx, "executor loop starting",
		slog.Duration("poll_interval", interval),
		slog.String("wallet", e.wallet),
		slog.Float64("size_percent", e.sizePercent),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for cycle := uint64(1); ; cycle++ {
		if err := e.RunCycle(ctx); err != nil {
			metrics.Cycles.WithLabelValues("aborted").Inc()
			e.logger.ErrorContext(ctx, "cycle aborted",
				slog.Uint64("cycle", cycle),
				slog.String("error", err.Error()),
			)
		} else {
			metrics.Cycles.WithLabelValues("ok").Inc()
		}

		select {
		case <-ctx.Done():
			e.logger.InfoContext(ctx, "executor loop stopped", slog.Uint64("cycles", cycle))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one poll-fetch-reconcile-cleanup pass. The account
// snapshot is fetched once and shared by every signal in the cycle; if the
// fetch fails the cycle aborts with no deletions so nothing is lost during an
// exchange outage. Failures of individual signals never block their siblings.
func (e *Engine) RunCycle(ctx context.Context) error {
	// Cancellation is observed between cycles only. A shutdown landing
	// mid-ladder must not fail the remaining attempts, the notification, or
	// the delete of a signal that is already being processed.
	ctx = context.WithoutCancel(ctx)

	pending, err := e.signals.FetchPending(ctx)
	if err != nil {
		return fmt.Errorf("engine: fetch pending signals: %w", err)
	}
	if len(pending) == 0 {
		e.logger.DebugContext(ctx, "no pending signals")
		return nil
	}

	e.logger.InfoContext(ctx, "pending signals found", slog.Int("count", len(pending)))

	snapshot, err := e.account.FetchSnapshot(ctx, e.wallet)
	if err != nil {
		return fmt.Errorf("engine: fetch account snapshot: %w", err)
	}
	metrics.Equity.Set(snapshot.Equity)
	e.logger.InfoContext(ctx, "account snapshot fetched",
		slog.Float64("equity", snapshot.Equity),
		slog.Int("open_positions", len(snapshot.Positions)),
	)

	for _, sig := range pending {
		outcome := e.processSignal(ctx, sig, snapshot)
		metrics.Signals.WithLabelValues(string(outcome.Kind)).Inc()

		e.notifyOutcome(ctx, sig, outcome)

		// Cleanup is unconditional once a processing attempt was made: the
		// delete is the only record that this signal was handled.
		if err := e.signals.Delete(ctx, sig.ID); err != nil {
			e.logger.ErrorContext(ctx, "signal delete failed",
				slog.Int64("signal_id", sig.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		e.logger.InfoContext(ctx, "signal deleted",
			slog.Int64("signal_id", sig.ID),
			slog.String("outcome", string(outcome.Kind)),
		)
	}

	return nil
}

// processSignal resolves one signal to its terminal outcome. It never returns
// an error: every failure beyond the expected skip conditions ends in the
// exhausted outcome so the caller's notify-and-delete path is uniform.
func (e *Engine) processSignal(ctx context.Context, sig domain.Signal, snapshot domain.AccountSnapshot) domain.Outcome {
	requested := sig.RequestedLeverage()

	log := e.logger.With(
		slog.Int64("signal_id", sig.ID),
		slog.String("coin", sig.Coin),
		slog.String("side", string(sig.Side)),
	)
	log.InfoContext(ctx, "processing signal", slog.Int("leverage", requested))

	outcome := domain.Outcome{
		Coin:     sig.Coin,
		Side:     sig.Side,
		Leverage: requested,
	}

	if snapshot.HasOpen(sig.Coin, sig.Side) {
		log.InfoContext(ctx, "position already open, skipping")
		outcome.Kind = domain.OutcomeAlreadyOpen
		return outcome
	}

	notional := NotionalUSD(snapshot, e.sizePercent)
	outcome.NotionalUSD = notional
	if notional <= 0 {
		log.WarnContext(ctx, "insufficient funds, skipping",
			slog.Float64("equity", snapshot.Equity),
		)
		outcome.Kind = domain.OutcomeInsufficientFunds
		return outcome
	}

	log.InfoContext(ctx, "position sized",
		slog.Float64("notional_usd", notional),
		slog.Float64("size_percent", e.sizePercent),
	)

	for _, leverage := range LeverageLadder(requested) {
		log.InfoContext(ctx, "submitting order", slog.Int("leverage", leverage))

		res, err := e.submitter.Submit(ctx, domain.OrderRequest{
			Coin:        sig.Coin,
			Side:        sig.Side,
			NotionalUSD: notional,
			Leverage:    leverage,
		})
		if err != nil {
			metrics.OrderAttempts.WithLabelValues("failed").Inc()
			log.WarnContext(ctx, "order attempt failed",
				slog.Int("leverage", leverage),
				slog.String("error", err.Error()),
			)
			continue
		}

		metrics.OrderAttempts.WithLabelValues("ok").Inc()
		log.InfoContext(ctx, "position opened",
			slog.Int("leverage", leverage),
			slog.String("order_id", res.OrderID),
			slog.Float64("filled_size", res.FilledSize),
			slog.Float64("avg_price", res.AvgPrice),
		)
		outcome.Kind = domain.OutcomeOpened
		outcome.Leverage = leverage
		return outcome
	}

	log.ErrorContext(ctx, "all leverage attempts failed",
		slog.String("error", domain.ErrAllLeveragesExhausted.Error()),
	)
	outcome.Kind = domain.OutcomeExhausted
	return outcome
}

// notifyOutcome sends the single outcome notification for a signal. Delivery
// failure is logged and never blocks the subsequent delete.
func (e *Engine) notifyOutcome(ctx context.Context, sig domain.Signal, outcome domain.Outcome) {
	title, message := notify.FormatOutcome(outcome)
	if err := e.notifier.Notify(ctx, notify.OutcomeEvent(outcome), title, message); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		e.logger.ErrorContext(ctx, "outcome notification failed",
			slog.Int64("signal_id", sig.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.Notifications.WithLabelValues("ok").Inc()
}
