package portfolio

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchScope/internal/chain"
	"launchScope/internal/model"
)

const erc20BalanceOfABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	balanceOfABI    abi.ABI
	balanceOfOnce   sync.Once
	balanceOfABIErr error
)

func getBalanceOfABI() (abi.ABI, error) {
	balanceOfOnce.Do(func() {
		balanceOfABI, balanceOfABIErr = abi.JSON(strings.NewReader(erc20BalanceOfABIJSON))
	})
	return balanceOfABI, balanceOfABIErr
}

// BalanceSource supplies one balance per (token, owner) pair.
type BalanceSource interface {
	Balance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// ChainBalances reads ERC-20 balances via eth_call.
type ChainBalances struct {
	chain *chain.Client
}

func NewChainBalances(chainClient *chain.Client) *ChainBalances {
	return &ChainBalances{chain: chainClient}
}

// Balance returns the token balance held by owner.
func (b *ChainBalances) Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	balanceABI, err := getBalanceOfABI()
	if err != nil {
		return nil, err
	}

	data, err := balanceABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := b.chain.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, &model.NetworkError{Op: "balanceOf", Err: err}
	}

	values, err := balanceABI.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf return size %d", len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return balance, nil
}

// FetchError records a single (owner, token) balance fetch failure.
type FetchError struct {
	OwnerAddress string
	TokenAddress string
	Err          error
}

// FetchHoldings reads one balance per (owner, token) pair. A failing
// pair is reported and skipped; the remaining pairs still produce
// holdings.
func FetchHoldings(
	ctx context.Context,
	source BalanceSource,
	owners []common.Address,
	tokens []common.Address,
	logger *zap.Logger,
) ([]model.Holding, []FetchError) {
	if logger == nil {
		logger = zap.NewNop()
	}

	holdings := make([]model.Holding, 0, len(owners)*len(tokens))
	var failures []FetchError

	for _, token := range tokens {
		for _, owner := range owners {
			balance, err := source.Balance(ctx, token, owner)
			if err != nil {
				logger.Warn("balance fetch failed",
					zap.String("token", token.Hex()),
					zap.String("owner", owner.Hex()),
					zap.Error(err))
				failures = append(failures, FetchError{
					OwnerAddress: owner.Hex(),
					TokenAddress: token.Hex(),
					Err:          err,
				})
				continue
			}
			holdings = append(holdings, model.Holding{
				OwnerAddress: owner.Hex(),
				TokenAddress: token.Hex(),
				Balance:      balance,
			})
		}
	}

	return holdings, failures
}
