package trades

import (
	"sort"

	"launchScope/internal/model"
)

// Merge unions cached and live records, collapsing entries that share a
// trade key. The result is independent of which source a record came
// from and of the order the sources are applied in, so an incremental
// delta merge and a single-pass merge agree.
//
// merged is sorted newest first (display order); delta holds the
// records present in live but not in cached, oldest first (persistence
// order).
func Merge(cached, live []model.TradeRecord) (merged, delta []model.TradeRecord) {
	seen := make(map[string]model.TradeRecord, len(cached)+len(live))
	for _, record := range cached {
		seen[record.Key()] = record
	}

	delta = make([]model.TradeRecord, 0)
	for _, record := range live {
		key := record.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = record
		delta = append(delta, record)
	}

	merged = make([]model.TradeRecord, 0, len(seen))
	for _, record := range seen {
		merged = append(merged, record)
	}
	SortDescending(merged)
	SortAscending(delta)
	return merged, delta
}

// SortDescending orders records newest first, with block number and log
// index as deterministic tie breakers.
func SortDescending(records []model.TradeRecord) {
	sort.Slice(records, func(i, j int) bool {
		return less(records[j], records[i])
	})
}

// SortAscending orders records oldest first, for chart consumers.
func SortAscending(records []model.TradeRecord) {
	sort.Slice(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
}

func less(a, b model.TradeRecord) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.LogIndex < b.LogIndex
}
