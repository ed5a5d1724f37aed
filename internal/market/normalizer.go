package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"launchScope/internal/curve"
	"launchScope/internal/model"
)

// Normalizer decodes raw launch pool log entries into canonical trade
// records. Classification is strictly by the declared event selector
// (topic0); a log whose selector is not a known trade event fails
// normalization rather than being guessed at.
type Normalizer struct {
	buyEvent  abi.Event
	sellEvent abi.Event
	buyTopic  common.Hash
	sellTopic common.Hash
	scale     *big.Int
}

// NewNormalizer builds a Normalizer. decimals is the token's decimal
// count used to derive the per-unit price; launch tokens default to 18.
func NewNormalizer(decimals uint8) (*Normalizer, error) {
	poolABI, err := curve.LaunchPoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	buyEvent, ok := poolABI.Events["TokenPurchase"]
	if !ok {
		return nil, fmt.Errorf("abi missing TokenPurchase event")
	}
	sellEvent, ok := poolABI.Events["TokenSale"]
	if !ok {
		return nil, fmt.Errorf("abi missing TokenSale event")
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)

	return &Normalizer{
		buyEvent:  buyEvent,
		sellEvent: sellEvent,
		buyTopic:  buyEvent.ID,
		sellTopic: sellEvent.ID,
		scale:     scale,
	}, nil
}

// Topics returns the topic0 selectors of the trade events, for use in
// log filter queries.
func (n *Normalizer) Topics() []common.Hash {
	return []common.Hash{n.buyTopic, n.sellTopic}
}

// Normalize decodes one log entry. blockTime is the containing block's
// timestamp; the record never carries wall-clock time so replays stay
// deterministic.
func (n *Normalizer) Normalize(log types.Log, blockTime uint64) (model.TradeRecord, error) {
	if len(log.Topics) == 0 {
		return model.TradeRecord{}, n.failf(log, "missing event selector")
	}

	var event abi.Event
	var kind model.TradeKind
	switch log.Topics[0] {
	case n.buyTopic:
		event = n.buyEvent
		kind = model.TradeBuy
	case n.sellTopic:
		event = n.sellEvent
		kind = model.TradeSell
	default:
		return model.TradeRecord{}, n.failf(log, "unknown event selector %s", log.Topics[0].Hex())
	}

	// selector + indexed trader address
	if len(log.Topics) < 2 {
		return model.TradeRecord{}, n.failf(log, "expected 2 topics, got %d", len(log.Topics))
	}
	trader := common.BytesToAddress(log.Topics[1].Bytes())

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.TradeRecord{}, n.failf(log, "unpack %s: %v", event.Name, err)
	}
	if len(values) != 5 {
		return model.TradeRecord{}, n.failf(log, "expected 5 data words, got %d", len(values))
	}

	amountLow, err := asWord(values[0])
	if err != nil {
		return model.TradeRecord{}, n.failf(log, "amount low: %v", err)
	}
	amountHigh, err := asWord(values[1])
	if err != nil {
		return model.TradeRecord{}, n.failf(log, "amount high: %v", err)
	}
	counterLow, err := asWord(values[2])
	if err != nil {
		return model.TradeRecord{}, n.failf(log, "counter value low: %v", err)
	}
	counterHigh, err := asWord(values[3])
	if err != nil {
		return model.TradeRecord{}, n.failf(log, "counter value high: %v", err)
	}
	fee, ok := values[4].(*big.Int)
	if !ok {
		return model.TradeRecord{}, n.failf(log, "fee: unsupported type %T", values[4])
	}

	amount, err := combineWords(amountLow, amountHigh)
	if err != nil {
		return model.TradeRecord{}, n.failf(log, "amount: %v", err)
	}
	counterValue, err := combineWords(counterLow, counterHigh)
	if err != nil {
		return model.TradeRecord{}, n.failf(log, "counter value: %v", err)
	}

	return model.TradeRecord{
		PoolAddress:  log.Address.Hex(),
		Trader:       trader.Hex(),
		Kind:         kind,
		Amount:       amount,
		CounterValue: counterValue,
		Fee:          new(big.Int).Set(fee),
		Price:        n.unitPrice(counterValue, amount),
		Timestamp:    blockTime,
		TxHash:       log.TxHash.Hex(),
		LogIndex:     uint64(log.Index),
		BlockNumber:  log.BlockNumber,
	}, nil
}

// unitPrice derives counterValue*10^decimals/amount, or 0 for a
// zero-amount trade.
func (n *Normalizer) unitPrice(counterValue, amount *big.Int) *big.Int {
	if amount.Sign() == 0 {
		return big.NewInt(0)
	}
	price := new(big.Int).Mul(counterValue, n.scale)
	return price.Div(price, amount)
}

func (n *Normalizer) failf(log types.Log, format string, args ...interface{}) error {
	return &model.NormalizationError{
		TxHash:   log.TxHash.Hex(),
		LogIndex: uint64(log.Index),
		Reason:   fmt.Sprintf(format, args...),
	}
}

// combineWords reconstructs low + high<<128. Both words must fit in
// 128 bits.
func combineWords(low, high *big.Int) (*big.Int, error) {
	if low.Sign() < 0 || low.BitLen() > 128 {
		return nil, fmt.Errorf("low word out of u128 range: %s", low)
	}
	if high.Sign() < 0 || high.BitLen() > 128 {
		return nil, fmt.Errorf("high word out of u128 range: %s", high)
	}
	combined := new(big.Int).Lsh(high, 128)
	return combined.Add(combined, low), nil
}

func asWord(value interface{}) (*big.Int, error) {
	v, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported word type %T", value)
	}
	return v, nil
}
