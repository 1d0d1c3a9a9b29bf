package agentdb

import (
	"context"

	"github.com/uptrace/bun"

	mghelper "github.com/topdeveloper55/ether-pulse-bridge/pkg/pgutil/migrations"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/receiptstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if err := mghelper.CreateSchema(ctx, db, &receiptstore.ReceiptDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &receiptstore.ReceiptDao{}, "sender", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		return mghelper.DropTables(ctx, db, &receiptstore.ReceiptDao{})
	})
}
