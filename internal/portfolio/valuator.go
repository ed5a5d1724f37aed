package portfolio

import (
	"math/big"
	"sort"
	"strings"

	"launchScope/internal/model"
)

// Aggregate groups holdings by token, summing balances exactly and
// retaining the per-address contributions for drill-down. Tokens whose
// balance is zero across every address are dropped. The result is
// derived state: callers recompute it when holdings or prices change.
func Aggregate(holdings []model.Holding) []model.AggregatedHolding {
	byToken := make(map[string]*model.AggregatedHolding)
	order := make([]string, 0)

	for _, holding := range holdings {
		key := strings.ToLower(holding.TokenAddress)
		agg := byToken[key]
		if agg == nil {
			agg = &model.AggregatedHolding{
				TokenAddress: holding.TokenAddress,
				TotalBalance: big.NewInt(0),
			}
			byToken[key] = agg
			order = append(order, key)
		}
		if holding.Balance != nil {
			agg.TotalBalance.Add(agg.TotalBalance, holding.Balance)
		}
		agg.PerAddress = append(agg.PerAddress, holding)
	}

	sort.Strings(order)
	out := make([]model.AggregatedHolding, 0, len(order))
	for _, key := range order {
		agg := byToken[key]
		if agg.TotalBalance.Sign() == 0 {
			continue
		}
		out = append(out, *agg)
	}
	return out
}

// HoldingValue returns balance*price.
func HoldingValue(balance, price *big.Int) *big.Int {
	if balance == nil || price == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(balance, price)
}

// TokenValue is one token's contribution to the portfolio total.
type TokenValue struct {
	TokenAddress string
	Balance      *big.Int
	Price        *big.Int
	Value        *big.Int
}

// Valuation is the priced view of an aggregated portfolio. Tokens held
// without an available price are excluded from the total, not silently
// valued at zero, and reported in MissingPrices.
type Valuation struct {
	Total         *big.Int
	PerToken      []TokenValue
	MissingPrices []string
}

// Value prices the aggregated holdings. prices is keyed by lowercase
// token address. The total is an explicit summation so it always
// reflects the prices passed in.
func Value(aggregated []model.AggregatedHolding, prices map[string]*big.Int) Valuation {
	valuation := Valuation{Total: big.NewInt(0)}

	for _, holding := range aggregated {
		price, ok := prices[strings.ToLower(holding.TokenAddress)]
		if !ok || price == nil {
			valuation.MissingPrices = append(valuation.MissingPrices, holding.TokenAddress)
			continue
		}

		value := HoldingValue(holding.TotalBalance, price)
		valuation.PerToken = append(valuation.PerToken, TokenValue{
			TokenAddress: holding.TokenAddress,
			Balance:      holding.TotalBalance,
			Price:        price,
			Value:        value,
		})
		valuation.Total.Add(valuation.Total, value)
	}

	return valuation
}
