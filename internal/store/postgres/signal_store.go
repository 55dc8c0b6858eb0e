package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hlcopy/hlcopybot/internal/domain"
)

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a new SignalStore backed by the given connection pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const signalSelectCols = `id, position_signature, coin, side, size,
	entry_price, current_price, unrealized_pnl, pnl_percent,
	leverage, margin_used, liquidation_price, detected_at`

func scanSignalRows(rows pgx.Rows) ([]domain.Signal, error) {
	var signals []domain.Signal
	for rows.Next() {
		var s domain.Signal
		var side string

		if err := rows.Scan(
			&s.ID, &s.PositionSignature, &s.Coin, &side, &s.Size,
			&s.EntryPrice, &s.CurrentPrice, &s.UnrealizedPnL, &s.PnLPercent,
			&s.Leverage, &s.MarginUsed, &s.LiquidationPrice, &s.DetectedAt,
		); err != nil {
			return nil, err
		}
		s.Side = domain.Side(side)
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// FetchPending returns every pending signal ordered most recently detected
// first, with the store-assigned id as tie-break. The rows are not locked or
// marked: a signal only stops being pending when Delete removes it.
func (s *SignalStore) FetchPending(ctx context.Context) ([]domain.Signal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+signalSelectCols+` FROM new_positions
		 ORDER BY detected_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch pending signals: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pending signals: %w", err)
	}
	return signals, nil
}

// Delete removes one signal row by id. A missing row is treated as success:
// the only thing the caller needs is that the row is gone afterwards.
func (s *SignalStore) Delete(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM new_positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete signal %d: %w", id, err)
	}
	return nil
}
