package store

import (
	"context"

	"launchScope/internal/model"
)

// TradeCache is the best-effort persistence collaborator for trade
// history. The pipeline must function fully when it is absent or
// failing: reads degrade to empty, write failures are logged and
// dropped.
type TradeCache interface {
	// ReadTrades returns the cached records for a pool. A cache miss is
	// model.ErrNotFound, not a failure.
	ReadTrades(ctx context.Context, pool string) ([]model.TradeRecord, error)
	// WriteTrades stores the reconciled record set for a pool.
	WriteTrades(ctx context.Context, pool string, records []model.TradeRecord) error
}

// Noop is the TradeCache used when no cache backend is configured.
type Noop struct{}

func (Noop) ReadTrades(context.Context, string) ([]model.TradeRecord, error) {
	return nil, model.ErrNotFound
}

func (Noop) WriteTrades(context.Context, string, []model.TradeRecord) error {
	return nil
}
