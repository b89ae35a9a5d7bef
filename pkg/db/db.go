package db

import (
	"context"
	"fmt"

	"github.com/level-fi/llp-tracker/pkg/db/clickhouse"
	"github.com/level-fi/llp-tracker/pkg/utils"
	"go.uber.org/zap"
)

const (
	CheckpointsTableName = "llp_checkpoints"
	PerSharesTableName   = "llp_pershares"
	WindowsTableName     = "llp_windows"
)

// DB holds the ClickHouse replica of the ledger feeds plus the materialized
// performance windows. It implements Store.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects to ClickHouse and ensures the tracker database and tables
// exist. The database name comes from TRACKER_DB.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	dbName := clickhouse.SanitizeName(utils.Env("TRACKER_DB", "llp_tracker"))

	client, err := clickhouse.New(ctx, logger.With(zap.String("db", dbName)))
	if err != nil {
		return nil, err
	}

	db := &DB{
		Client: client,
		Name:   dbName,
	}

	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// InitializeDB ensures the required database and tables exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}

	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{CheckpointsTableName, db.initCheckpoints},
		{PerSharesTableName, db.initPerShares},
		{WindowsTableName, db.initWindows},
	}
	for _, op := range inits {
		if err := op.fn(ctx); err != nil {
			return fmt.Errorf("init %s: %w", op.name, err)
		}
	}

	return nil
}

// DatabaseName returns the ClickHouse database backing this tracker.
func (db *DB) DatabaseName() string {
	return db.Name
}

// existingIDs returns the subset of candidate ids already present in a table.
func (db *DB) existingIDs(ctx context.Context, table string, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}

	query := fmt.Sprintf(`SELECT DISTINCT id FROM "%s"."%s" WHERE id IN (?)`, db.Name, table)

	var found []struct {
		ID string `ch:"id"`
	}
	if err := db.Select(ctx, &found, query, ids); err != nil {
		return nil, fmt.Errorf("select existing ids from %s: %w", table, err)
	}

	existing := make(map[string]struct{}, len(found))
	for _, row := range found {
		existing[row.ID] = struct{}{}
	}
	return existing, nil
}
