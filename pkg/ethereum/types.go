package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferRecord is the bridge contract's stored view of one lock, as returned
// by txInfo(uniqueID).
type TransferRecord struct {
	UniqueID           *big.Int
	From               common.Address
	To                 common.Address
	Token              common.Address
	Amount             *big.Int
	DestinationChainID *big.Int
	TxHash             common.Hash
}
