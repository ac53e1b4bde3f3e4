package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
)

func newTestService(t *testing.T) (feedomain.Service, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&feedomain.FeeStructure{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, node
}

func heads(amounts ...int64) []feedomain.FeeHead {
	out := make([]feedomain.FeeHead, 0, len(amounts))
	for i, amount := range amounts {
		out = append(out, feedomain.FeeHead{
			HeadCode: []string{"TUITION", "HOSTEL", "EXAM"}[i%3],
			HeadName: "Head",
			Amount:   amount,
		})
	}
	return out
}

func TestResolve_SchoolSpecificWinsOverGlobal(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()

	schoolID := node.Generate()
	courseID := node.Generate()

	_, err := svc.Upsert(ctx, feedomain.UpsertRequest{
		AcYear:   "2026-27",
		CourseID: courseID,
		Heads:    heads(100_00),
		Active:   true,
	})
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, feedomain.UpsertRequest{
		SchoolID: &schoolID,
		AcYear:   "2026-27",
		CourseID: courseID,
		Heads:    heads(250_00),
		Active:   true,
	})
	require.NoError(t, err)

	structure, resolved, err := svc.Resolve(ctx, schoolID, "2026-27", courseID)
	require.NoError(t, err)
	require.NotNil(t, structure.SchoolID)
	assert.Equal(t, schoolID, *structure.SchoolID)
	require.Len(t, resolved, 1)
	assert.Equal(t, int64(250_00), resolved[0].Amount)
}

func TestResolve_FallsBackToGlobal(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()

	courseID := node.Generate()
	_, err := svc.Upsert(ctx, feedomain.UpsertRequest{
		AcYear:   "2026-27",
		CourseID: courseID,
		Heads:    heads(100_00),
		Active:   true,
	})
	require.NoError(t, err)

	structure, resolved, err := svc.Resolve(ctx, node.Generate(), "2026-27", courseID)
	require.NoError(t, err)
	assert.Nil(t, structure.SchoolID)
	require.Len(t, resolved, 1)
	assert.Equal(t, int64(100_00), resolved[0].Amount)
}

func TestResolve_NotConfigured(t *testing.T) {
	svc, node := newTestService(t)

	_, _, err := svc.Resolve(context.Background(), node.Generate(), "2026-27", node.Generate())
	assert.ErrorIs(t, err, feedomain.ErrNotConfigured)
}

func TestUpsert_RejectsEmptyHeads(t *testing.T) {
	svc, node := newTestService(t)

	_, err := svc.Upsert(context.Background(), feedomain.UpsertRequest{
		AcYear:   "2026-27",
		CourseID: node.Generate(),
		Active:   true,
	})
	assert.ErrorIs(t, err, feedomain.ErrInvalidHeads)
}

func TestUpsert_UpdatesExistingScope(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	courseID := node.Generate()

	first, err := svc.Upsert(ctx, feedomain.UpsertRequest{
		AcYear:   "2026-27",
		CourseID: courseID,
		Heads:    heads(100_00),
		Active:   true,
	})
	require.NoError(t, err)

	second, err := svc.Upsert(ctx, feedomain.UpsertRequest{
		AcYear:   "2026-27",
		CourseID: courseID,
		Heads:    heads(175_00),
		Active:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same scope must update, not duplicate")

	_, resolved, err := svc.Resolve(ctx, node.Generate(), "2026-27", courseID)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, int64(175_00), resolved[0].Amount)
}
