package receiptstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
)

const defaultListLimit = 50

type pgStore struct {
	db *bun.DB
}

var _ Store = (*pgStore)(nil)

// NewStore creates a postgres receipt store.
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// SaveReceipt inserts r as submitted. Saving the same source tx hash twice
// keeps the first row.
func (s *pgStore) SaveReceipt(ctx context.Context, r *bridge.Receipt) error {
	_, err := s.db.NewInsert().
		Model(toReceiptDao(r)).
		On("CONFLICT (source_tx_hash) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

func (s *pgStore) UpdateStatus(ctx context.Context, sourceTxHash common.Hash, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid receipt status %q", status)
	}

	now := time.Now().UTC()
	q := s.db.NewUpdate().
		Model((*ReceiptDao)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("source_tx_hash = ?", sourceTxHash.Hex())
	if status == StatusConfirmed {
		q = q.Set("confirmed_at = ?", now)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update receipt status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

func (s *pgStore) GetBySourceTxHash(ctx context.Context, sourceTxHash common.Hash) (*Entry, error) {
	dao := new(ReceiptDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("source_tx_hash = ?", sourceTxHash.Hex()).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return toEntry(dao), nil
}

// ListBySender returns sender's receipts, newest first.
func (s *pgStore) ListBySender(ctx context.Context, sender common.Address, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var daos []ReceiptDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("sender = ?", sender.Hex()).
		OrderExpr("created_at DESC, id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	entries := make([]*Entry, len(daos))
	for i := range daos {
		entries[i] = toEntry(&daos[i])
	}
	return entries, nil
}

// RecordReceipt journals a new receipt for the orchestrator.
func (s *pgStore) RecordReceipt(ctx context.Context, r *bridge.Receipt) error {
	return s.SaveReceipt(ctx, r)
}

// RecordOutcome journals a flow's confirmation outcome.
func (s *pgStore) RecordOutcome(ctx context.Context, sourceTxHash common.Hash, outcome string) error {
	return s.UpdateStatus(ctx, sourceTxHash, outcome)
}
