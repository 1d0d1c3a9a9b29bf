package main

import (
	"context"
	"flag"
	"log"

	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/config"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/migrations/agentdb"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/pgutil"
	mghelper "github.com/topdeveloper55/ether-pulse-bridge/pkg/pgutil/migrations"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("error creating logger: %s", err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	db, err := pgutil.ConnectDB(ctx, &cfg.Database, logger)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	logger.Info("Running migrations for receipt journal", zap.String("database", cfg.Database.Database))

	migrator := migrate.NewMigrator(db, agentdb.Migrations)
	if err := mghelper.RunMigrations(ctx, migrator, logger, flag.Args()...); err != nil {
		log.Fatalf("migration failed: %s", err.Error())
	}
}
