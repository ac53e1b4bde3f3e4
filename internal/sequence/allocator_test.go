package sequence

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	seqdomain "github.com/Shihab-md/unis-server-sub000/internal/sequence/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&seqdomain.SequenceCounter{}))
	return db
}

func TestNext_StartsAtOneAndIsContiguous(t *testing.T) {
	db := newTestDB(t)
	alloc := NewAllocator(db)
	ctx := context.Background()

	for want := int64(1); want <= 50; want++ {
		got, err := alloc.Next(ctx, seqdomain.SeqInvoice)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNext_CountersAreIndependent(t *testing.T) {
	db := newTestDB(t)
	alloc := NewAllocator(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := alloc.Next(ctx, seqdomain.SeqInvoice)
		require.NoError(t, err)
	}
	got, err := alloc.Next(ctx, seqdomain.SeqBatch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNext_NoReuseAcrossAllocators(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seen := make(map[int64]bool)
	for i := 0; i < 20; i++ {
		got, err := NewAllocator(db).Next(ctx, seqdomain.SeqReceipt)
		require.NoError(t, err)
		assert.False(t, seen[got], "number %d allocated twice", got)
		seen[got] = true
	}
}

func TestNext_RolledBackTransactionLeavesGap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := NewAllocator(db).Next(ctx, seqdomain.SeqBatch)
	require.NoError(t, err)

	// Consume a number inside a transaction that aborts.
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := WithTx(tx).Next(ctx, seqdomain.SeqBatch)
		require.NoError(t, err)
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	next, err := NewAllocator(db).Next(ctx, seqdomain.SeqBatch)
	require.NoError(t, err)
	assert.Greater(t, next, first)
	allocated := next - first
	assert.LessOrEqual(t, allocated, int64(2), "gap should be at most the rolled back number")
}

func TestNext_RequiresName(t *testing.T) {
	db := newTestDB(t)
	_, err := NewAllocator(db).Next(context.Background(), "")
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	got, err := FormatNumber("INV", 9, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV000000042", got)

	got, err = FormatNumber("BATCH", 9, 1)
	require.NoError(t, err)
	assert.Equal(t, "BATCH000000001", got)

	got, err = FormatNumber("RCT", 0, 7)
	require.NoError(t, err)
	assert.Equal(t, "RCT7", got)

	// Numbers wider than the pad keep all their digits.
	got, err = FormatNumber("X", 3, 123456)
	require.NoError(t, err)
	assert.Equal(t, "X123456", got)

	_, err = FormatNumber("INV", 9, 0)
	assert.Error(t, err)
	_, err = FormatNumber("INV", 9, -5)
	assert.Error(t, err)
}

func TestNextFormatted(t *testing.T) {
	db := newTestDB(t)
	alloc := NewAllocator(db)

	got, err := alloc.NextFormatted(context.Background(), seqdomain.SeqInvoice, "INV", 9)
	require.NoError(t, err)
	assert.Equal(t, "INV000000001", got)
}
