package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/metrics"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// maxRecordScan bounds how many earlier transfer ids are checked when other
// locks landed in the same block after ours.
const maxRecordScan = 16

var errRecordNotFound = errors.New("no matching transfer record at inclusion block")

// Submitter sends lock transactions and reads back the transfer record.
type Submitter struct {
	provider wallet.Provider
	readers  ReaderSource
	logger   *zap.Logger
}

// NewSubmitter creates a bridge submitter.
func NewSubmitter(provider wallet.Provider, readers ReaderSource, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{provider: provider, readers: readers, logger: logger}
}

// SubmitLock locks intent.Amount in the source bridge for the connected
// wallet and returns the receipt. The intent is validated, the signer
// guarded and the token balance checked before any wallet call. Once the
// lock is broadcast the caller can no longer cancel it. The lock is never
// retried.
func (sb *Submitter) SubmitLock(ctx context.Context, s wallet.Session, intent Intent) (*Receipt, error) {
	amount, err := intent.ScaledAmount()
	if err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := guardSigner(ctx, sb.provider, s, intent.Source); err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	reader, err := sb.readers(ctx, intent.Source.ChainID)
	if err != nil {
		return nil, sb.failed(err)
	}
	balance, err := reader.BalanceOf(ctx, intent.Token.Address, s.Address)
	if err != nil {
		return nil, sb.failed(fmt.Errorf("read balance: %w", err))
	}
	if balance.Cmp(amount) < 0 {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, InvalidAmountError(fmt.Sprintf("amount exceeds balance of %s %s",
			FormatAmount(balance, intent.Token.Decimals), intent.Token.Symbol))
	}

	recipient := s.Address
	data, err := ethereum.PackLockTokens(recipient, intent.Token.Address, amount, intent.Destination.ChainID)
	if err != nil {
		return nil, sb.failed(err)
	}

	lockHash, err := sb.provider.SignAndSend(ctx, wallet.TxRequest{
		ChainID:   intent.Source.ChainID,
		To:        intent.Source.Bridge,
		Data:      data,
		Operation: "lock",
	})
	if err != nil {
		if errors.Is(err, wallet.ErrChainMismatch) {
			metrics.Submissions.WithLabelValues("rejected").Inc()
			return nil, WrongNetworkError(sb.provider.Session().ActiveChainID, intent.Source.ChainID)
		}
		return nil, sb.failed(err)
	}

	ctx, cancel := afterBroadcast(ctx)
	defer cancel()

	included, err := sb.provider.WaitForReceipt(ctx, lockHash)
	if err != nil {
		return nil, sb.failed(fmt.Errorf("lock %s: %w", lockHash.Hex(), err))
	}

	want := ethereum.TransferRecord{
		From:               s.Address,
		To:                 recipient,
		Token:              intent.Token.Address,
		Amount:             amount,
		DestinationChainID: new(big.Int).SetUint64(intent.Destination.ChainID),
	}
	record, err := sb.findRecord(ctx, reader, intent.Source.Bridge, included.BlockNumber, want)
	if err != nil {
		return nil, sb.failed(fmt.Errorf("lock %s: %w", lockHash.Hex(), err))
	}

	sourceHash := record.TxHash
	if sourceHash == (common.Hash{}) {
		sourceHash = lockHash
	}

	receipt := &Receipt{
		UniqueID:           record.UniqueID.String(),
		SourceTxHash:       sourceHash,
		LockTxHash:         lockHash,
		SourceChainID:      intent.Source.ChainID,
		DestinationChainID: intent.Destination.ChainID,
		Token:              intent.Token.Address,
		Amount:             amount.String(),
		Sender:             s.Address,
		Recipient:          recipient,
		BlockNumber:        included.BlockNumber.Uint64(),
	}

	metrics.Submissions.WithLabelValues("success").Inc()
	sb.logger.Info("Lock included",
		zap.String("unique_id", receipt.UniqueID),
		zap.String("source_tx_hash", receipt.SourceTxHash.Hex()),
		zap.String("lock_tx_hash", receipt.LockTxHash.Hex()),
		zap.Uint64("source_chain_id", receipt.SourceChainID),
		zap.Uint64("destination_chain_id", receipt.DestinationChainID),
		zap.String("amount", FormatAmount(amount, intent.Token.Decimals)))
	return receipt, nil
}

// findRecord reads uniqueID at the inclusion block and walks back until a
// record matches the lock parameters.
func (sb *Submitter) findRecord(
	ctx context.Context,
	reader ChainReader,
	bridgeAddr common.Address,
	block *big.Int,
	want ethereum.TransferRecord,
) (*ethereum.TransferRecord, error) {
	latest, err := reader.LatestTransferID(ctx, bridgeAddr, block)
	if err != nil {
		return nil, err
	}

	id := new(big.Int).Set(latest)
	for i := 0; i < maxRecordScan && id.Sign() >= 0; i++ {
		record, err := reader.TransferRecord(ctx, bridgeAddr, id, block)
		if err != nil {
			return nil, err
		}
		if recordMatches(record, want) {
			return record, nil
		}
		sb.logger.Debug("Transfer record belongs to another lock",
			zap.String("unique_id", id.String()),
			zap.String("from", record.From.Hex()))
		id = new(big.Int).Sub(id, big.NewInt(1))
	}
	return nil, errRecordNotFound
}

func recordMatches(got *ethereum.TransferRecord, want ethereum.TransferRecord) bool {
	return got != nil &&
		got.From == want.From &&
		got.To == want.To &&
		got.Token == want.Token &&
		got.Amount != nil && got.Amount.Cmp(want.Amount) == 0 &&
		got.DestinationChainID != nil && got.DestinationChainID.Cmp(want.DestinationChainID) == 0
}

func (sb *Submitter) failed(err error) error {
	metrics.Submissions.WithLabelValues("failed").Inc()
	metrics.ErrorsTotal.WithLabelValues("submission", "tx_failed").Inc()
	return SubmissionError(err)
}
