package model

import "math/big"

// CurveParams are the immutable bonding curve parameters of a market,
// set at creation and never mutated afterwards.
type CurveParams struct {
	BasePrice *big.Int
	Slope     *big.Int
}

// CurveState is the ledger-owned mutable market state. This pipeline
// only ever reads it.
type CurveState struct {
	TokensSold *big.Int
	MaxSupply  *big.Int
	Migrated   bool
}
