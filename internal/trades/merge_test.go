package trades

import (
	"math/big"
	"reflect"
	"testing"

	"launchScope/internal/model"
)

func record(tx string, logIndex, ts, block uint64, kind model.TradeKind, counter int64) model.TradeRecord {
	return model.TradeRecord{
		PoolAddress:  "0x4444444444444444444444444444444444444444",
		Trader:       "0x3333333333333333333333333333333333333333",
		Kind:         kind,
		Amount:       big.NewInt(1),
		CounterValue: big.NewInt(counter),
		Fee:          big.NewInt(0),
		Price:        big.NewInt(counter),
		Timestamp:    ts,
		TxHash:       tx,
		LogIndex:     logIndex,
		BlockNumber:  block,
	}
}

func keys(records []model.TradeRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Key())
	}
	return out
}

func TestMergeDeduplicates(t *testing.T) {
	a := record("0xaa", 0, 100, 10, model.TradeBuy, 5)
	b := record("0xbb", 0, 200, 20, model.TradeSell, 7)

	merged, delta := Merge([]model.TradeRecord{a}, []model.TradeRecord{a, b})
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(merged))
	}
	if len(delta) != 1 || delta[0].TxHash != "0xbb" {
		t.Fatalf("delta mismatch: %+v", delta)
	}
}

func TestMergeIdempotent(t *testing.T) {
	a := record("0xaa", 0, 100, 10, model.TradeBuy, 5)
	b := record("0xbb", 0, 200, 20, model.TradeSell, 7)
	live := []model.TradeRecord{a, b}

	once, _ := Merge(nil, live)
	twice, delta := Merge(once, live)

	if !reflect.DeepEqual(keys(once), keys(twice)) {
		t.Fatalf("merge not idempotent: %v != %v", keys(once), keys(twice))
	}
	if len(delta) != 0 {
		t.Fatalf("re-merging produced a delta: %+v", delta)
	}
}

func TestMergeIncrementalEquivalence(t *testing.T) {
	cached := []model.TradeRecord{
		record("0xaa", 0, 100, 10, model.TradeBuy, 5),
		record("0xbb", 0, 200, 20, model.TradeSell, 7),
	}
	live := []model.TradeRecord{
		record("0xbb", 0, 200, 20, model.TradeSell, 7),
		record("0xcc", 0, 300, 30, model.TradeBuy, 9),
	}

	onePass, _ := Merge(cached, live)

	seeded, _ := Merge(nil, cached)
	incremental, _ := Merge(seeded, live)

	if !reflect.DeepEqual(keys(onePass), keys(incremental)) {
		t.Fatalf("merge order matters: %v != %v", keys(onePass), keys(incremental))
	}
}

func TestMergeSameTxDistinctLogs(t *testing.T) {
	first := record("0xaa", 0, 100, 10, model.TradeBuy, 5)
	second := record("0xaa", 1, 100, 10, model.TradeSell, 6)

	merged, _ := Merge(nil, []model.TradeRecord{first, second})
	if len(merged) != 2 {
		t.Fatalf("same tx with distinct log indexes must keep both, got %d", len(merged))
	}
}

func TestMergeSortsNewestFirst(t *testing.T) {
	merged, _ := Merge(nil, []model.TradeRecord{
		record("0xaa", 0, 100, 10, model.TradeBuy, 5),
		record("0xcc", 0, 300, 30, model.TradeBuy, 9),
		record("0xbb", 0, 200, 20, model.TradeSell, 7),
	})

	want := []string{"0xcc:0", "0xbb:0", "0xaa:0"}
	if !reflect.DeepEqual(keys(merged), want) {
		t.Fatalf("order mismatch: %v != %v", keys(merged), want)
	}

	SortAscending(merged)
	want = []string{"0xaa:0", "0xbb:0", "0xcc:0"}
	if !reflect.DeepEqual(keys(merged), want) {
		t.Fatalf("ascending order mismatch: %v != %v", keys(merged), want)
	}
}

func TestFilter(t *testing.T) {
	records := []model.TradeRecord{
		record("0xaa", 0, 100, 10, model.TradeBuy, 5),
		record("0xbb", 0, 200, 20, model.TradeSell, 7),
		record("0xcc", 0, 300, 30, model.TradeBuy, 9),
	}

	buys := Filter(records, Query{Kind: model.TradeBuy})
	if len(buys) != 2 {
		t.Fatalf("expected 2 buys, got %d", len(buys))
	}

	windowed := Filter(records, Query{StartTime: 150, EndTime: 250})
	if len(windowed) != 1 || windowed[0].TxHash != "0xbb" {
		t.Fatalf("window filter mismatch: %+v", windowed)
	}

	all := Filter(records, Query{})
	if len(all) != 3 {
		t.Fatalf("empty query must match everything, got %d", len(all))
	}
}

func TestSummarize(t *testing.T) {
	records := []model.TradeRecord{
		record("0xaa", 0, 100, 10, model.TradeBuy, 5),
		record("0xbb", 0, 200, 20, model.TradeSell, 7),
		record("0xcc", 0, 300, 30, model.TradeBuy, 9),
	}

	stats := Summarize(records)
	if stats.BuyCount != 2 || stats.SellCount != 1 {
		t.Fatalf("count mismatch: %+v", stats)
	}
	if stats.TotalVolume.Cmp(big.NewInt(21)) != 0 {
		t.Fatalf("volume mismatch: %s", stats.TotalVolume)
	}
}
