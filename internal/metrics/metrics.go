// Package metrics exposes Prometheus counters for the executor loop:
//
//   - hlcopy_cycles_total{result}        – poll cycles (ok|aborted)
//   - hlcopy_signals_total{outcome}      – processed signals by terminal state
//   - hlcopy_order_attempts_total{result} – leverage-ladder attempts (ok|failed)
//   - hlcopy_notifications_total{result} – outcome notifications (ok|failed)
//   - hlcopy_equity_usd                  – last observed account equity (gauge)
//
// Metrics are registered in init() and served at /metrics by Serve.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlcopy_cycles_total",
			Help: "Poll cycles by result",
		},
		[]string{"result"}, // ok|aborted
	)

	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlcopy_signals_total",
			Help: "Processed signals by terminal outcome",
		},
		[]string{"outcome"},
	)

	OrderAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlcopy_order_attempts_total",
			Help: "Order submission attempts by result",
		},
		[]string{"result"}, // ok|failed
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlcopy_notifications_total",
			Help: "Outcome notifications by delivery result",
		},
		[]string{"result"}, // ok|failed
	)

	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hlcopy_equity_usd",
			Help: "Last observed account equity in USD",
		},
	)
)

func init() {
	prometheus.MustRegister(Cycles, Signals, OrderAttempts, Notifications, Equity)
}

// Serve runs the /metrics HTTP listener until ctx is cancelled.
func Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("metrics: serve: %w", err)
	}
}
