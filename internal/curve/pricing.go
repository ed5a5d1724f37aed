package curve

import (
	"math/big"

	"launchScope/internal/model"
)

// Pure bonding-curve math. Everything here is exact big.Int arithmetic
// so results never diverge from the on-chain computation, and every
// function is safe to call concurrently.

// Price returns the instantaneous unit price for a quantity sold:
// basePrice + slope*sold.
func Price(params model.CurveParams, sold *big.Int) *big.Int {
	base := orZero(params.BasePrice)
	slope := orZero(params.Slope)
	sold = orZero(sold)

	price := new(big.Int).Mul(slope, sold)
	return price.Add(price, base)
}

// MarketCap returns price*sold.
func MarketCap(price, sold *big.Int) *big.Int {
	return new(big.Int).Mul(orZero(price), orZero(sold))
}

// Progress returns the sale progress as a whole percentage in [0,100].
// Malformed inputs clamp rather than panic: a zero or missing max
// supply reports 0, oversold markets report 100.
func Progress(sold, maxSupply *big.Int) uint64 {
	sold = orZero(sold)
	maxSupply = orZero(maxSupply)

	if maxSupply.Sign() <= 0 || sold.Sign() <= 0 {
		return 0
	}
	if sold.Cmp(maxSupply) >= 0 {
		return 100
	}

	bps := new(big.Int).Mul(sold, big.NewInt(10_000))
	bps.Div(bps, maxSupply)
	percent := bps.Div(bps, big.NewInt(100)).Uint64()
	if percent > 100 {
		return 100
	}
	return percent
}

func orZero(value *big.Int) *big.Int {
	if value == nil {
		return big.NewInt(0)
	}
	return value
}
