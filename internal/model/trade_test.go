package model

import (
	"encoding/json"
	"math/big"
	"reflect"
	"testing"
)

func TestTradeRecordJSONRoundTrip(t *testing.T) {
	amount, _ := new(big.Int).SetString("340282366920938463463374607431768211457", 10)
	original := TradeRecord{
		PoolAddress:  "0x1111111111111111111111111111111111111111",
		Trader:       "0x2222222222222222222222222222222222222222",
		Kind:         TradeBuy,
		Amount:       amount,
		CounterValue: big.NewInt(2_000_000),
		Fee:          big.NewInt(500),
		Price:        big.NewInt(1_000),
		Timestamp:    1700000000,
		TxHash:       "0xdef456",
		LogIndex:     3,
		BlockNumber:  36000000,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// amounts beyond 53-bit precision must travel as strings
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal fields failed: %v", err)
	}
	if _, ok := fields["amount"].(string); !ok {
		t.Fatalf("amount should be a string")
	}

	var decoded TradeRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestTradeRecordKey(t *testing.T) {
	a := TradeRecord{TxHash: "0xABCDEF", LogIndex: 2}
	b := TradeRecord{TxHash: "0xabcdef", LogIndex: 2}
	if a.Key() != b.Key() {
		t.Fatalf("keys should ignore hash casing: %s != %s", a.Key(), b.Key())
	}

	c := TradeRecord{TxHash: "0xabcdef", LogIndex: 3}
	if a.Key() == c.Key() {
		t.Fatalf("distinct log indexes must produce distinct keys")
	}
}
