package receiptstore

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
)

// ReceiptDao maps to the 'receipts' table.
type ReceiptDao struct {
	bun.BaseModel      `bun:"table:receipts,alias:r"`
	ID                 int64      `bun:"id,pk,autoincrement"`
	UniqueID           string     `bun:"unique_id,notnull,type:varchar(78)"`
	SourceChainID      int64      `bun:"source_chain_id,notnull"`
	DestinationChainID int64      `bun:"destination_chain_id,notnull"`
	SourceTxHash       string     `bun:"source_tx_hash,unique,notnull,type:varchar(66)"`
	LockTxHash         string     `bun:"lock_tx_hash,notnull,type:varchar(66)"`
	Token              string     `bun:"token,notnull,type:varchar(42)"`
	Amount             string     `bun:"amount,notnull,type:numeric(78,0)"`
	Sender             string     `bun:"sender,notnull,type:varchar(42)"`
	Recipient          string     `bun:"recipient,notnull,type:varchar(42)"`
	BlockNumber        int64      `bun:"block_number,notnull"`
	Status             string     `bun:"status,notnull,type:varchar(20)"`
	CreatedAt          time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	ConfirmedAt        *time.Time `bun:"confirmed_at"`
}

func toReceiptDao(r *bridge.Receipt) *ReceiptDao {
	return &ReceiptDao{
		UniqueID:           r.UniqueID,
		SourceChainID:      int64(r.SourceChainID),
		DestinationChainID: int64(r.DestinationChainID),
		SourceTxHash:       r.SourceTxHash.Hex(),
		LockTxHash:         r.LockTxHash.Hex(),
		Token:              r.Token.Hex(),
		Amount:             r.Amount,
		Sender:             r.Sender.Hex(),
		Recipient:          r.Recipient.Hex(),
		BlockNumber:        int64(r.BlockNumber),
		Status:             StatusSubmitted,
	}
}

func toEntry(dao *ReceiptDao) *Entry {
	return &Entry{
		Receipt: bridge.Receipt{
			UniqueID:           dao.UniqueID,
			SourceTxHash:       common.HexToHash(dao.SourceTxHash),
			LockTxHash:         common.HexToHash(dao.LockTxHash),
			SourceChainID:      uint64(dao.SourceChainID),
			DestinationChainID: uint64(dao.DestinationChainID),
			Token:              common.HexToAddress(dao.Token),
			Amount:             normalizeAmount(dao.Amount),
			Sender:             common.HexToAddress(dao.Sender),
			Recipient:          common.HexToAddress(dao.Recipient),
			BlockNumber:        uint64(dao.BlockNumber),
		},
		Status:      dao.Status,
		CreatedAt:   dao.CreatedAt,
		UpdatedAt:   dao.UpdatedAt,
		ConfirmedAt: dao.ConfirmedAt,
	}
}

// normalizeAmount drops any fractional part a numeric column renders.
func normalizeAmount(s string) string {
	whole, _, _ := strings.Cut(s, ".")
	return whole
}
