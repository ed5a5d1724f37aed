package trades

import (
	"math/big"

	"launchScope/internal/model"
)

// Query restricts a trade set. Zero values leave a dimension unbounded.
type Query struct {
	Kind      model.TradeKind // empty matches both kinds
	StartTime uint64          // inclusive
	EndTime   uint64          // inclusive
}

// Filter returns the records matching the query. Pure; the input slice
// is not modified.
func Filter(records []model.TradeRecord, query Query) []model.TradeRecord {
	out := make([]model.TradeRecord, 0, len(records))
	for _, record := range records {
		if query.Kind != "" && record.Kind != query.Kind {
			continue
		}
		if query.StartTime != 0 && record.Timestamp < query.StartTime {
			continue
		}
		if query.EndTime != 0 && record.Timestamp > query.EndTime {
			continue
		}
		out = append(out, record)
	}
	return out
}

// Stats are whole-set aggregates over a trade set.
type Stats struct {
	BuyCount    int
	SellCount   int
	TotalVolume *big.Int // sum of counter values across all records
}

// Summarize partitions counts by kind and sums counter values exactly.
func Summarize(records []model.TradeRecord) Stats {
	stats := Stats{TotalVolume: big.NewInt(0)}
	for _, record := range records {
		switch record.Kind {
		case model.TradeBuy:
			stats.BuyCount++
		case model.TradeSell:
			stats.SellCount++
		}
		if record.CounterValue != nil {
			stats.TotalVolume.Add(stats.TotalVolume, record.CounterValue)
		}
	}
	return stats
}
