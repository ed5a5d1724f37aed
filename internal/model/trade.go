package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// TradeKind distinguishes buys from sells.
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// TradeRecord is the canonical representation of one confirmed trade.
// Two records with the same TxHash and LogIndex denote the same event
// regardless of which source produced them.
type TradeRecord struct {
	PoolAddress  string
	Trader       string
	Kind         TradeKind
	Amount       *big.Int
	CounterValue *big.Int
	Fee          *big.Int
	Price        *big.Int
	Timestamp    uint64
	TxHash       string
	LogIndex     uint64
	BlockNumber  uint64
}

// Key returns the dedupe identity of the trade.
func (t TradeRecord) Key() string {
	return fmt.Sprintf("%s:%d", strings.ToLower(t.TxHash), t.LogIndex)
}

type tradeRecordJSON struct {
	PoolAddress  string    `json:"pool_address"`
	Trader       string    `json:"trader"`
	Kind         TradeKind `json:"kind"`
	Amount       string    `json:"amount"`
	CounterValue string    `json:"counter_value"`
	Fee          string    `json:"fee"`
	Price        string    `json:"price"`
	Timestamp    uint64    `json:"timestamp"`
	TxHash       string    `json:"tx_hash"`
	LogIndex     uint64    `json:"log_index"`
	BlockNumber  uint64    `json:"block_number"`
}

// MarshalJSON encodes big integer amounts as decimal strings so cached
// records survive consumers that cannot hold 256-bit numbers.
func (t TradeRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeRecordJSON{
		PoolAddress:  t.PoolAddress,
		Trader:       t.Trader,
		Kind:         t.Kind,
		Amount:       bigString(t.Amount),
		CounterValue: bigString(t.CounterValue),
		Fee:          bigString(t.Fee),
		Price:        bigString(t.Price),
		Timestamp:    t.Timestamp,
		TxHash:       t.TxHash,
		LogIndex:     t.LogIndex,
		BlockNumber:  t.BlockNumber,
	})
}

// UnmarshalJSON decodes a TradeRecord from its string-amount form.
func (t *TradeRecord) UnmarshalJSON(data []byte) error {
	var raw tradeRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	amount, err := bigFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	counterValue, err := bigFromString(raw.CounterValue)
	if err != nil {
		return fmt.Errorf("counter_value: %w", err)
	}
	fee, err := bigFromString(raw.Fee)
	if err != nil {
		return fmt.Errorf("fee: %w", err)
	}
	price, err := bigFromString(raw.Price)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}

	*t = TradeRecord{
		PoolAddress:  raw.PoolAddress,
		Trader:       raw.Trader,
		Kind:         raw.Kind,
		Amount:       amount,
		CounterValue: counterValue,
		Fee:          fee,
		Price:        price,
		Timestamp:    raw.Timestamp,
		TxHash:       raw.TxHash,
		LogIndex:     raw.LogIndex,
		BlockNumber:  raw.BlockNumber,
	}
	return nil
}

func bigString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func bigFromString(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
