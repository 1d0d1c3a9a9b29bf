package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/config"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/pgutil"
)

type sampleDao struct {
	bun.BaseModel `bun:"table:sample_rows"`
	ID            int64  `bun:",pk,autoincrement"`
	Hash          string `bun:",notnull,type:varchar(66)"`
	Status        string `bun:",notnull,type:varchar(20)"`
}

func TestConnectDBInvalidHost(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		User:     "bridge",
		Password: "bridge",
		Database: "bridge",
		SSLMode:  "disable",
	}

	db, err := pgutil.ConnectDB(context.Background(), cfg, nil)
	if err == nil {
		_ = db.Close()
		t.Fatal("ConnectDB() should fail with invalid host")
	}
}

func TestRunMigrationsRequiresCommand(t *testing.T) {
	err := RunMigrations(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestSchemaAndIndexHelpers(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, CreateSchema(ctx, db, &sampleDao{}))
	require.NoError(t, CreateSchema(ctx, db, &sampleDao{}), "CreateSchema must be idempotent")
	pgutil.AssertTableExists(t, db, "sample_rows")

	require.NoError(t, CreateModelIndexes(ctx, db, &sampleDao{}, "status"))
	require.NoError(t, CreateModelUniqueIndexes(ctx, db, &sampleDao{}, "hash"))
	pgutil.AssertIndexExists(t, db, "idx_sample_rows_status")
	pgutil.AssertIndexExists(t, db, "idx_sample_rows_hash")

	name, err := ModelIndexName(db, &sampleDao{}, "status")
	require.NoError(t, err)
	assert.Equal(t, "idx_sample_rows_status", name)

	_, err = db.NewInsert().Model(&sampleDao{Hash: "0x01", Status: "submitted"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&sampleDao{Hash: "0x01", Status: "confirmed"}).Exec(ctx)
	assert.Error(t, err, "unique index must reject duplicate hash")
	pgutil.AssertRowCount(t, db, "sample_rows", 1)

	require.NoError(t, DropModelIndexes(ctx, db, &sampleDao{}, "status", "hash"))
	require.NoError(t, DropTables(ctx, db, &sampleDao{}))
	require.NoError(t, DropTables(ctx, db, &sampleDao{}), "DropTables must be idempotent")
	pgutil.AssertTableNotExists(t, db, "sample_rows")
}
