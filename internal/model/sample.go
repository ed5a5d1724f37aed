package model

import (
	"math/big"
	"time"
)

// PriceSample is one successful price observation. The poller keeps at
// most the current and the immediately previous sample.
type PriceSample struct {
	Price      *big.Int
	TokensSold *big.Int
	ObservedAt time.Time
}
