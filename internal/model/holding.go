package model

import "math/big"

// Holding is a balance held under one of the user's addresses for one
// token. A logical user may control several such addresses.
type Holding struct {
	OwnerAddress string
	TokenAddress string
	Balance      *big.Int
}

// AggregatedHolding is the derived per-token view across all of the
// user's addresses. It is recomputed, never mutated in place.
type AggregatedHolding struct {
	TokenAddress string
	TotalBalance *big.Int
	PerAddress   []Holding
}
