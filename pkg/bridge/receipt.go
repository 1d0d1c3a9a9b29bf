package bridge

import (
	"github.com/ethereum/go-ethereum/common"
)

// Receipt records one successful lock. SourceTxHash is the key the
// confirmation service indexes transfers by.
type Receipt struct {
	UniqueID           string         `json:"unique_id"`
	SourceTxHash       common.Hash    `json:"source_tx_hash"`
	LockTxHash         common.Hash    `json:"lock_tx_hash"`
	SourceChainID      uint64         `json:"source_chain_id"`
	DestinationChainID uint64         `json:"destination_chain_id"`
	Token              common.Address `json:"token"`
	// Amount is in base units.
	Amount      string         `json:"amount"`
	Sender      common.Address `json:"sender"`
	Recipient   common.Address `json:"recipient"`
	BlockNumber uint64         `json:"block_number"`
}
