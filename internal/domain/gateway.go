package domain

import "context"

// SignalStore reads and removes pending signals. Implemented by the Postgres
// store.
type SignalStore interface {
	// FetchPending returns every pending signal, most recently detected
	// first. It never mutates the store.
	FetchPending(ctx context.Context) ([]Signal, error)

	// Delete removes one signal by identity. Deleting an id that no longer
	// exists is not an error. This is the only record that a signal was
	// handled, so callers invoke it exactly once per signal, after the
	// processing attempt.
	Delete(ctx context.Context, id int64) error
}

// AccountGateway fetches the exchange account state. Implemented by the
// Hyperliquid info client.
type AccountGateway interface {
	// FetchSnapshot performs one round-trip for the given wallet address.
	// Failures wrap ErrUpstreamUnavailable.
	FetchSnapshot(ctx context.Context, wallet string) (AccountSnapshot, error)
}

// OrderRequest parameterizes a single order submission attempt.
type OrderRequest struct {
	Coin        string
	Side        Side
	NotionalUSD float64
	Leverage    int
}

// OrderResult is the synchronously observed outcome of a submission.
type OrderResult struct {
	OrderID     string // venue order id when available
	ClientOrder string // cloid sent with the order
	FilledSize  float64
	AvgPrice    float64
}

// OrderSubmitter places a market order on the exchange. A failed attempt
// returns an error; retry policy (the leverage ladder) lives entirely in the
// reconciliation engine, never here.
type OrderSubmitter interface {
	Submit(ctx context.Context, req OrderRequest) (OrderResult, error)
}
