package trades

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchScope/internal/curve"
	"launchScope/internal/market"
	"launchScope/internal/model"
)

var (
	testPool   = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testTrader = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeLedger struct {
	mu          sync.Mutex
	latest      uint64
	logs        []types.Log
	times       map[uint64]uint64
	filterErr   error
	filterCalls [][2]uint64
	gate        chan struct{}
}

func (f *fakeLedger) LatestBlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeLedger) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts, ok := f.times[number]
	if !ok {
		return 0, fmt.Errorf("unknown block %d", number)
	}
	return ts, nil
}

func (f *fakeLedger) FilterLogs(ctx context.Context, from, to uint64, address common.Address, topic0 []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	f.filterCalls = append(f.filterCalls, [2]uint64{from, to})
	gate := f.gate
	err := f.filterErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Log, 0, len(f.logs))
	for _, entry := range f.logs {
		if entry.BlockNumber >= from && entry.BlockNumber <= to {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeLedger) calls() [][2]uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]uint64(nil), f.filterCalls...)
}

type fakeCache struct {
	mu       sync.Mutex
	stored   map[string][]model.TradeRecord
	readErr  error
	writeErr error
	writes   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[string][]model.TradeRecord)}
}

func (f *fakeCache) ReadTrades(ctx context.Context, pool string) ([]model.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	records, ok := f.stored[pool]
	if !ok {
		return nil, model.ErrNotFound
	}
	return append([]model.TradeRecord(nil), records...), nil
}

func (f *fakeCache) WriteTrades(ctx context.Context, pool string, records []model.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.stored[pool] = append([]model.TradeRecord(nil), records...)
	return nil
}

func buyLog(t *testing.T, block uint64, logIndex uint, tx common.Hash, amount, counter *big.Int) types.Log {
	t.Helper()
	poolABI, err := curve.LaunchPoolABI()
	require.NoError(t, err)
	event := poolABI.Events["TokenPurchase"]

	data, err := event.Inputs.NonIndexed().Pack(amount, big.NewInt(0), counter, big.NewInt(0), big.NewInt(0))
	require.NoError(t, err)

	return types.Log{
		Address:     testPool,
		Topics:      []common.Hash{event.ID, common.BytesToHash(testTrader.Bytes())},
		Data:        data,
		TxHash:      tx,
		Index:       logIndex,
		BlockNumber: block,
	}
}

func newTestReconciler(t *testing.T, ledger *fakeLedger, cache *fakeCache) *Reconciler {
	t.Helper()
	norm, err := market.NewNormalizer(18)
	require.NoError(t, err)
	return NewReconciler(Config{Pool: testPool, StartBlock: 1, CacheTimeout: time.Second}, ledger, norm, cache, nil)
}

func TestRefreshEndToEnd(t *testing.T) {
	oneToken, _ := new(big.Int).SetString("1000000000000000000", 10)
	twoTokens, _ := new(big.Int).SetString("2000000000000000000", 10)
	tx := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001")

	ledger := &fakeLedger{
		latest: 100,
		logs:   []types.Log{buyLog(t, 100, 0, tx, oneToken, twoTokens)},
		times:  map[uint64]uint64{100: 1700000000},
	}
	cache := newFakeCache()

	reconciler := newTestReconciler(t, ledger, cache)
	records, err := reconciler.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, model.TradeBuy, records[0].Kind)
	assert.Zero(t, records[0].Price.Cmp(twoTokens), "unit price should be 2e18")
	assert.Equal(t, uint64(1700000000), records[0].Timestamp)

	// the delta was written through
	assert.Len(t, cache.stored[testPool.Hex()], 1)

	// a fresh reconciler seeded from that cache must not duplicate the
	// trade, and must not re-scan blocks it already has
	second := newTestReconciler(t, ledger, cache)
	records, err = second.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Len(t, ledger.calls(), 1, "seeded reconciler must not re-scan cached blocks")
}

func TestRefreshIncrementalWatermark(t *testing.T) {
	ledger := &fakeLedger{latest: 100, times: map[uint64]uint64{}}
	reconciler := newTestReconciler(t, ledger, newFakeCache())

	_, err := reconciler.Refresh(context.Background())
	require.NoError(t, err)

	ledger.mu.Lock()
	ledger.latest = 110
	ledger.mu.Unlock()

	_, err = reconciler.Refresh(context.Background())
	require.NoError(t, err)

	calls := ledger.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, [2]uint64{1, 100}, calls[0])
	assert.Equal(t, [2]uint64{101, 110}, calls[1])
}

func TestRefreshCacheReadFailureDegradesToLive(t *testing.T) {
	oneToken, _ := new(big.Int).SetString("1000000000000000000", 10)
	tx := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000002")

	ledger := &fakeLedger{
		latest: 50,
		logs:   []types.Log{buyLog(t, 50, 0, tx, oneToken, oneToken)},
		times:  map[uint64]uint64{50: 1700000100},
	}
	cache := newFakeCache()
	cache.readErr = errors.New("cache down")

	reconciler := newTestReconciler(t, ledger, cache)
	records, err := reconciler.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRefreshSkipsMalformedLog(t *testing.T) {
	oneToken, _ := new(big.Int).SetString("1000000000000000000", 10)
	goodTx := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000003")

	bogus := types.Log{
		Address:     testPool,
		Topics:      []common.Hash{common.HexToHash("0xdead")},
		TxHash:      common.HexToHash("0xbad0"),
		BlockNumber: 60,
	}

	ledger := &fakeLedger{
		latest: 60,
		logs:   []types.Log{bogus, buyLog(t, 60, 1, goodTx, oneToken, oneToken)},
		times:  map[uint64]uint64{60: 1700000200},
	}

	reconciler := newTestReconciler(t, ledger, newFakeCache())
	records, err := reconciler.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, goodTx.Hex(), records[0].TxHash)
}

func TestRefreshFetchFailureIsRetryable(t *testing.T) {
	ledger := &fakeLedger{latest: 70, times: map[uint64]uint64{}}
	ledger.filterErr = errors.New("rpc timeout")

	reconciler := newTestReconciler(t, ledger, newFakeCache())
	_, err := reconciler.Refresh(context.Background())

	var netErr *model.NetworkError
	require.ErrorAs(t, err, &netErr)

	// the watermark must not advance past unfetched blocks
	ledger.mu.Lock()
	ledger.filterErr = nil
	ledger.mu.Unlock()

	_, err = reconciler.Refresh(context.Background())
	require.NoError(t, err)

	calls := ledger.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0], calls[1])
}

func TestRefreshWriteFailureSwallowed(t *testing.T) {
	oneToken, _ := new(big.Int).SetString("1000000000000000000", 10)
	tx := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000004")

	ledger := &fakeLedger{
		latest: 80,
		logs:   []types.Log{buyLog(t, 80, 0, tx, oneToken, oneToken)},
		times:  map[uint64]uint64{80: 1700000300},
	}
	cache := newFakeCache()
	cache.writeErr = errors.New("cache down")

	reconciler := newTestReconciler(t, ledger, cache)
	records, err := reconciler.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRefreshCoalescesConcurrentCalls(t *testing.T) {
	oneToken, _ := new(big.Int).SetString("1000000000000000000", 10)
	older := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000005")
	newer := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000006")

	gate := make(chan struct{})
	ledger := &fakeLedger{
		latest: 90,
		logs: []types.Log{
			buyLog(t, 89, 0, older, oneToken, oneToken),
			buyLog(t, 90, 0, newer, oneToken, oneToken),
		},
		times: map[uint64]uint64{89: 1700000400, 90: 1700000500},
		gate:  gate,
	}
	reconciler := newTestReconciler(t, ledger, newFakeCache())

	type result struct {
		records []model.TradeRecord
		err     error
	}
	results := make(chan result, 2)
	refresh := func() {
		records, err := reconciler.Refresh(context.Background())
		results <- result{records, err}
	}

	go refresh()

	// wait for the first refresh to enter the ledger fetch
	require.Eventually(t, func() bool {
		return len(ledger.calls()) == 1
	}, time.Second, time.Millisecond)

	go refresh()

	// give the second caller a moment to join the in-flight refresh
	time.Sleep(10 * time.Millisecond)
	close(gate)

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Len(t, ledger.calls(), 1, "concurrent refreshes must share one fetch")

	// each caller owns its slice; reordering one must not disturb the other
	require.Len(t, first.records, 2)
	require.Len(t, second.records, 2)
	SortAscending(first.records)
	assert.Equal(t, uint64(90), second.records[0].BlockNumber, "reordering one caller's result leaked into the other")
}
