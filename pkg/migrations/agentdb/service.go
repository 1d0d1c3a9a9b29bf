// Package agentdb holds the migrations for the bridge agent's receipt journal.
package agentdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the agent database
var Migrations = migrate.NewMigrations()
