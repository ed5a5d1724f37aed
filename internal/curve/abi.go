package curve

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Launch pool contract surface: the two trade events and the two curve
// views this pipeline reads. Amounts and counter values are emitted as
// (low, high) uint128 word pairs forming one 256-bit value.
const launchPoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "buyer", "type": "address"},
      {"indexed": false, "internalType": "uint128", "name": "amountLow", "type": "uint128"},
      {"indexed": false, "internalType": "uint128", "name": "amountHigh", "type": "uint128"},
      {"indexed": false, "internalType": "uint128", "name": "costLow", "type": "uint128"},
      {"indexed": false, "internalType": "uint128", "name": "costHigh", "type": "uint128"},
      {"indexed": false, "internalType": "uint256", "name": "fee", "type": "uint256"}
    ],
    "name": "TokenPurchase",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "seller", "type": "address"},
      {"indexed": false, "internalType": "uint128", "name": "amountLow", "type": "uint128"},
      {"indexed": false, "internalType": "uint128", "name": "amountHigh", "type": "uint128"},
      {"indexed": false, "internalType": "uint128", "name": "proceedsLow", "type": "uint128"},
      {"indexed": false, "internalType": "uint128", "name": "proceedsHigh", "type": "uint128"},
      {"indexed": false, "internalType": "uint256", "name": "fee", "type": "uint256"}
    ],
    "name": "TokenSale",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "curveParameters",
    "outputs": [
      {"internalType": "uint256", "name": "basePrice", "type": "uint256"},
      {"internalType": "uint256", "name": "slope", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "curveState",
    "outputs": [
      {"internalType": "uint256", "name": "tokensSold", "type": "uint256"},
      {"internalType": "uint256", "name": "maxSupply", "type": "uint256"},
      {"internalType": "bool", "name": "migrated", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	launchPoolABI     abi.ABI
	launchPoolABIOnce sync.Once
	launchPoolABIErr  error
)

// LaunchPoolABI returns the parsed launch pool ABI.
func LaunchPoolABI() (abi.ABI, error) {
	launchPoolABIOnce.Do(func() {
		launchPoolABI, launchPoolABIErr = abi.JSON(strings.NewReader(launchPoolABIJSON))
	})
	return launchPoolABI, launchPoolABIErr
}
