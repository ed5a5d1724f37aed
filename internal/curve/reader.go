package curve

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"launchScope/internal/chain"
	"launchScope/internal/model"
)

// Reader fetches curve parameters and state for one launch pool via
// eth_call. It satisfies the poller's curve source interface.
type Reader struct {
	chain *chain.Client
	pool  common.Address
}

// NewReader builds a Reader for a pool.
func NewReader(chainClient *chain.Client, pool common.Address) (*Reader, error) {
	if chainClient == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	return &Reader{chain: chainClient, pool: pool}, nil
}

// CurveParameters reads the immutable basePrice and slope.
func (r *Reader) CurveParameters(ctx context.Context) (model.CurveParams, error) {
	values, err := r.call(ctx, "curveParameters")
	if err != nil {
		return model.CurveParams{}, &model.NetworkError{Op: "curveParameters", Err: err}
	}
	if len(values) != 2 {
		return model.CurveParams{}, fmt.Errorf("curveParameters return size %d", len(values))
	}

	basePrice, err := asBigInt(values[0])
	if err != nil {
		return model.CurveParams{}, fmt.Errorf("basePrice: %w", err)
	}
	slope, err := asBigInt(values[1])
	if err != nil {
		return model.CurveParams{}, fmt.Errorf("slope: %w", err)
	}

	return model.CurveParams{BasePrice: basePrice, Slope: slope}, nil
}

// CurveState reads the current tokensSold, maxSupply, and migration flag.
func (r *Reader) CurveState(ctx context.Context) (model.CurveState, error) {
	values, err := r.call(ctx, "curveState")
	if err != nil {
		return model.CurveState{}, &model.NetworkError{Op: "curveState", Err: err}
	}
	if len(values) != 3 {
		return model.CurveState{}, fmt.Errorf("curveState return size %d", len(values))
	}

	tokensSold, err := asBigInt(values[0])
	if err != nil {
		return model.CurveState{}, fmt.Errorf("tokensSold: %w", err)
	}
	maxSupply, err := asBigInt(values[1])
	if err != nil {
		return model.CurveState{}, fmt.Errorf("maxSupply: %w", err)
	}
	migrated, ok := values[2].(bool)
	if !ok {
		return model.CurveState{}, fmt.Errorf("migrated: unsupported type %T", values[2])
	}

	return model.CurveState{TokensSold: tokensSold, MaxSupply: maxSupply, Migrated: migrated}, nil
}

func (r *Reader) call(ctx context.Context, method string) ([]interface{}, error) {
	poolABI, err := LaunchPoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &r.pool, Data: data}
	resp, err := r.chain.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
