package trades

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchScope/internal/market"
	"launchScope/internal/model"
	"launchScope/internal/store"
)

// LogSource is the ledger read surface the reconciler needs.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Config holds per-pool reconciler settings.
type Config struct {
	Pool         common.Address
	StartBlock   uint64        // first block to scan when no history exists
	CacheTimeout time.Duration // budget for best-effort cache I/O
}

const defaultCacheTimeout = 2 * time.Second

// Reconciler maintains one deduplicated, time-ordered trade set per
// pool, backed by a best-effort cache and the live ledger. Refreshes
// for a pool are serialized; concurrent callers coalesce onto the
// in-flight operation.
type Reconciler struct {
	cfg    Config
	chain  LogSource
	norm   *market.Normalizer
	cache  store.TradeCache
	logger *zap.Logger

	mu        sync.Mutex
	records   map[string]model.TradeRecord
	nextBlock uint64
	seeded    bool
	inflight  *refreshCall
}

type refreshCall struct {
	done    chan struct{}
	records []model.TradeRecord
	err     error
}

// NewReconciler builds a Reconciler for one pool.
func NewReconciler(cfg Config, chainClient LogSource, norm *market.Normalizer, cache store.TradeCache, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = store.Noop{}
	}
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = defaultCacheTimeout
	}
	return &Reconciler{
		cfg:     cfg,
		chain:   chainClient,
		norm:    norm,
		cache:   cache,
		logger:  logger,
		records: make(map[string]model.TradeRecord),
	}
}

// Refresh brings the trade set up to date with the ledger and returns
// it newest first. A refresh already in flight for this pool is joined
// rather than duplicated; every caller gets its own copy of the result,
// safe to reorder.
func (r *Reconciler) Refresh(ctx context.Context) ([]model.TradeRecord, error) {
	r.mu.Lock()
	if r.inflight != nil {
		call := r.inflight
		r.mu.Unlock()
		select {
		case <-call.done:
			return append([]model.TradeRecord(nil), call.records...), call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	r.inflight = call
	r.mu.Unlock()

	call.records, call.err = r.doRefresh(ctx)

	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()
	close(call.done)

	return call.records, call.err
}

// Trades returns the current reconciled set without touching the
// ledger, newest first.
func (r *Reconciler) Trades() []model.TradeRecord {
	r.mu.Lock()
	out := make([]model.TradeRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	r.mu.Unlock()

	SortDescending(out)
	return out
}

func (r *Reconciler) doRefresh(ctx context.Context) ([]model.TradeRecord, error) {
	r.seedFromCache(ctx)

	latest, err := r.chain.LatestBlockNumber(ctx)
	if err != nil {
		return nil, &model.NetworkError{Op: "latest block", Err: err}
	}

	r.mu.Lock()
	from := r.nextBlock
	cached := make([]model.TradeRecord, 0, len(r.records))
	for _, record := range r.records {
		cached = append(cached, record)
	}
	r.mu.Unlock()

	if from == 0 {
		from = r.cfg.StartBlock
	}
	if from > latest {
		SortDescending(cached)
		return cached, nil
	}

	live, err := r.fetchLive(ctx, from, latest)
	if err != nil {
		return nil, err
	}

	merged, delta := Merge(cached, live)

	r.mu.Lock()
	for _, record := range delta {
		r.records[record.Key()] = record
	}
	r.nextBlock = latest + 1
	r.mu.Unlock()

	if len(delta) > 0 {
		r.persistDelta(ctx, merged, delta)
	}

	return merged, nil
}

// seedFromCache loads cached history once, before the first live fetch.
// Any cache failure degrades to live-only operation.
func (r *Reconciler) seedFromCache(ctx context.Context) {
	r.mu.Lock()
	if r.seeded {
		r.mu.Unlock()
		return
	}
	r.seeded = true
	r.mu.Unlock()

	cacheCtx, cancel := context.WithTimeout(ctx, r.cfg.CacheTimeout)
	defer cancel()

	cached, err := r.cache.ReadTrades(cacheCtx, r.cfg.Pool.Hex())
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			r.logger.Warn("trade cache read failed, continuing from live data",
				zap.String("pool", r.cfg.Pool.Hex()), zap.Error(err))
		}
		return
	}

	r.mu.Lock()
	var maxBlock uint64
	for _, record := range cached {
		r.records[record.Key()] = record
		if record.BlockNumber > maxBlock {
			maxBlock = record.BlockNumber
		}
	}
	if maxBlock > 0 {
		r.nextBlock = maxBlock + 1
	}
	r.mu.Unlock()
}

// fetchLive queries the ledger for trade logs in [from, to] and
// normalizes them. A single malformed log is skipped with a warning;
// a transport failure aborts the fetch and is retryable by the caller.
func (r *Reconciler) fetchLive(ctx context.Context, from, to uint64) ([]model.TradeRecord, error) {
	logs, err := r.chain.FilterLogs(ctx, from, to, r.cfg.Pool, r.norm.Topics())
	if err != nil {
		return nil, &model.NetworkError{Op: "filter logs", Err: err}
	}

	records := make([]model.TradeRecord, 0, len(logs))
	for _, entry := range logs {
		if entry.Removed {
			continue
		}

		blockTime, err := r.chain.BlockTimestamp(ctx, entry.BlockNumber)
		if err != nil {
			return nil, &model.NetworkError{Op: "block timestamp", Err: err}
		}

		record, err := r.norm.Normalize(entry, blockTime)
		if err != nil {
			r.logger.Warn("skipping malformed trade log",
				zap.String("pool", r.cfg.Pool.Hex()),
				zap.String("tx_hash", entry.TxHash.Hex()),
				zap.Uint64("log_index", uint64(entry.Index)),
				zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// persistDelta writes the reconciled set through to the cache. The
// in-memory view is already correct, so failures are logged and
// swallowed, and the write gets its own timeout so a slow cache cannot
// delay the caller's data.
func (r *Reconciler) persistDelta(ctx context.Context, merged, delta []model.TradeRecord) {
	cacheCtx, cancel := context.WithTimeout(ctx, r.cfg.CacheTimeout)
	defer cancel()

	if err := r.cache.WriteTrades(cacheCtx, r.cfg.Pool.Hex(), merged); err != nil {
		r.logger.Warn("trade cache write failed",
			zap.String("pool", r.cfg.Pool.Hex()),
			zap.Int("new_records", len(delta)),
			zap.Error(err))
		return
	}
	r.logger.Debug("persisted trade delta",
		zap.String("pool", r.cfg.Pool.Hex()),
		zap.Int("new_records", len(delta)))
}
