package agentdb

import (
	"context"

	"github.com/uptrace/bun"

	mghelper "github.com/topdeveloper55/ether-pulse-bridge/pkg/pgutil/migrations"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/receiptstore"
)

// Transfer ids are unique per source chain.
func init() {
	indexName := func(db *bun.DB) (string, error) {
		return mghelper.ModelIndexName(db, (*receiptstore.ReceiptDao)(nil), "source_chain_unique_id")
	}

	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		name, err := indexName(db)
		if err != nil {
			return err
		}
		_, err = db.NewCreateIndex().
			Model((*receiptstore.ReceiptDao)(nil)).
			Index(name).
			Column("source_chain_id", "unique_id").
			Unique().
			IfNotExists().
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		name, err := indexName(db)
		if err != nil {
			return err
		}
		_, err = db.NewDropIndex().
			Model((*receiptstore.ReceiptDao)(nil)).
			Index(name).
			IfExists().
			Exec(ctx)
		return err
	})
}
