package scope

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	schooldomain "github.com/Shihab-md/unis-server-sub000/internal/school/domain"
)

func newTestResolver(t *testing.T) (Resolver, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&schooldomain.School{}, &schooldomain.Supervisor{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewResolver(ResolverParam{DB: db, Log: zap.NewNop()}), db, node
}

func TestSchoolIDs_HQIsUnscoped(t *testing.T) {
	resolver, _, node := newTestResolver(t)

	for _, role := range []authdomain.Role{authdomain.RoleSuperadmin, authdomain.RoleHQUser} {
		ids, unscoped, err := resolver.SchoolIDs(context.Background(), authdomain.Identity{
			UserID: node.Generate(),
			Role:   role,
		})
		require.NoError(t, err)
		assert.True(t, unscoped)
		assert.Nil(t, ids)
	}
}

func TestSchoolIDs_AdminSeesOwnSchoolOnly(t *testing.T) {
	resolver, _, node := newTestResolver(t)
	schoolID := node.Generate()

	ids, unscoped, err := resolver.SchoolIDs(context.Background(), authdomain.Identity{
		UserID:   node.Generate(),
		Role:     authdomain.RoleAdmin,
		SchoolID: &schoolID,
	})
	require.NoError(t, err)
	assert.False(t, unscoped)
	assert.Equal(t, []snowflake.ID{schoolID}, ids)

	// An admin without a school sees nothing.
	ids, unscoped, err = resolver.SchoolIDs(context.Background(), authdomain.Identity{
		UserID: node.Generate(),
		Role:   authdomain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.False(t, unscoped)
	assert.Empty(t, ids)
}

func TestSchoolIDs_SupervisorSeesRouteSchools(t *testing.T) {
	resolver, db, node := newTestResolver(t)

	supervisorID := node.Generate()
	require.NoError(t, db.Create(&schooldomain.Supervisor{ID: supervisorID, Name: "Route A", Active: true}).Error)

	mine1 := node.Generate()
	mine2 := node.Generate()
	other := node.Generate()
	require.NoError(t, db.Create(&schooldomain.School{ID: mine1, Code: "S1", Name: "One", SupervisorID: &supervisorID, Active: true}).Error)
	require.NoError(t, db.Create(&schooldomain.School{ID: mine2, Code: "S2", Name: "Two", SupervisorID: &supervisorID, Active: true}).Error)
	require.NoError(t, db.Create(&schooldomain.School{ID: other, Code: "S3", Name: "Three", Active: true}).Error)

	ids, unscoped, err := resolver.SchoolIDs(context.Background(), authdomain.Identity{
		UserID:       node.Generate(),
		Role:         authdomain.RoleSupervisor,
		SupervisorID: &supervisorID,
	})
	require.NoError(t, err)
	assert.False(t, unscoped)
	assert.ElementsMatch(t, []snowflake.ID{mine1, mine2}, ids)
}

func TestCanAccessSchool(t *testing.T) {
	resolver, db, node := newTestResolver(t)

	supervisorID := node.Generate()
	schoolID := node.Generate()
	otherID := node.Generate()
	require.NoError(t, db.Create(&schooldomain.School{ID: schoolID, Code: "S1", Name: "One", SupervisorID: &supervisorID, Active: true}).Error)
	require.NoError(t, db.Create(&schooldomain.School{ID: otherID, Code: "S2", Name: "Two", Active: true}).Error)

	hq := authdomain.Identity{UserID: node.Generate(), Role: authdomain.RoleHQUser}
	ok, err := resolver.CanAccessSchool(context.Background(), hq, otherID)
	require.NoError(t, err)
	assert.True(t, ok)

	supervisor := authdomain.Identity{
		UserID:       node.Generate(),
		Role:         authdomain.RoleSupervisor,
		SupervisorID: &supervisorID,
	}
	ok, err = resolver.CanAccessSchool(context.Background(), supervisor, schoolID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.CanAccessSchool(context.Background(), supervisor, otherID)
	require.NoError(t, err)
	assert.False(t, ok)

	admin := authdomain.Identity{UserID: node.Generate(), Role: authdomain.RoleAdmin, SchoolID: &schoolID}
	ok, err = resolver.CanAccessSchool(context.Background(), admin, schoolID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.CanAccessSchool(context.Background(), admin, otherID)
	require.NoError(t, err)
	assert.False(t, ok)
}
