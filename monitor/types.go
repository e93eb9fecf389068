package monitor

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DiscoveredContract is one newly-deployed contract found in a scanned
// block, either top-level (from a receipt's ContractAddress) or a factory
// child (from a nested CREATE/CREATE2 trace frame), per spec §4.H steps 3-4.
type DiscoveredContract struct {
	Address         common.Address
	TransactionHash common.Hash
	BlockNumber     uint64
	IsFactoryChild  bool
}

// chainState is the per-chain loop state spec §4.H names: {lastBlockSeen, blockInterval}.
type chainState struct {
	chainID       *big.Int
	lastBlockSeen uint64
	interval      time.Duration
}
