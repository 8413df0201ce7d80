package staging

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite DB for staging store tests.
func setupTestDB(t *testing.T, dbName string) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func TestImportKeys(t *testing.T) {
	assert.Equal(t, "24RIC01-2-200SL-ROSSI|MARIO|1978",
		IndividualKey("24RIC01", 2, "200SL", "ROSSI|MARIO|1978"))

	relay := RelayKey("24RIC01", 1, "S4X50MI", "CSS VERONA", "F")
	assert.Equal(t, "24RIC01-1-S4X50MI-CSS VERONA-F", relay)
	assert.Equal(t, "24RIC01-1-S4X50MI-CSS VERONA-F-3", LegKey(relay, 3))
}

func TestStore_SaveBatchUpserts(t *testing.T) {
	db := setupTestDB(t, "staging_upsert")
	store := NewStore(db)
	ctx := context.Background()

	key := IndividualKey("24RIC01", 1, "200SL", "ROSSI|MARIO|1978")
	err := store.SaveBatch(ctx, []Row{{
		SourceRef:    "24RIC01",
		ImportKey:    key,
		Kind:         KindIndividual,
		SessionOrder: 1,
		EventCode:    "200SL",
		Rank:         3,
		Hundredths:   13830,
	}})
	require.NoError(t, err)

	// Re-solving the document updates in place instead of duplicating.
	err = store.SaveBatch(ctx, []Row{{
		SourceRef:    "24RIC01",
		ImportKey:    key,
		Kind:         KindIndividual,
		SessionOrder: 1,
		EventCode:    "200SL",
		Rank:         2,
		Hundredths:   13790,
	}})
	require.NoError(t, err)

	rows, err := store.ListBySource(ctx, "24RIC01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Rank)
	assert.Equal(t, 13790, rows[0].Hundredths)

	count, err := store.CountBySource(ctx, "24RIC01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStore_ListBySourceOrdering(t *testing.T) {
	db := setupTestDB(t, "staging_order")
	store := NewStore(db)
	ctx := context.Background()

	err := store.SaveBatch(ctx, []Row{
		{SourceRef: "24RIC01", ImportKey: "24RIC01-2-100DO-B", SessionOrder: 2, EventCode: "100DO"},
		{SourceRef: "24RIC01", ImportKey: "24RIC01-1-200SL-Z", SessionOrder: 1, EventCode: "200SL"},
		{SourceRef: "24RIC01", ImportKey: "24RIC01-1-200SL-A", SessionOrder: 1, EventCode: "200SL"},
		{SourceRef: "OTHER", ImportKey: "OTHER-1-50SL-X", SessionOrder: 1, EventCode: "50SL"},
	})
	require.NoError(t, err)

	rows, err := store.ListBySource(ctx, "24RIC01")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "24RIC01-1-200SL-A", rows[0].ImportKey)
	assert.Equal(t, "24RIC01-1-200SL-Z", rows[1].ImportKey)
	assert.Equal(t, "24RIC01-2-100DO-B", rows[2].ImportKey)
}

func TestStore_PurgeConsumedOnly(t *testing.T) {
	db := setupTestDB(t, "staging_purge")
	store := NewStore(db)
	ctx := context.Background()

	err := store.SaveBatch(ctx, []Row{
		{SourceRef: "24RIC01", ImportKey: "24RIC01-1-200SL-A", SessionOrder: 1},
		{SourceRef: "24RIC01", ImportKey: "24RIC01-1-200SL-B", SessionOrder: 1},
	})
	require.NoError(t, err)

	rows, err := store.ListBySource(ctx, "24RIC01")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Purge the consumed row; the unlinked one survives.
	err = store.Purge(ctx, []uint{rows[0].ID})
	require.NoError(t, err)

	remaining, err := store.ListBySource(ctx, "24RIC01")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, rows[1].ImportKey, remaining[0].ImportKey)

	err = store.PurgeBySource(ctx, "24RIC01")
	require.NoError(t, err)
	count, err := store.CountBySource(ctx, "24RIC01")
	require.NoError(t, err)
	assert.Zero(t, count)
}
