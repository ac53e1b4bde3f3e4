package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/config"
)

func newTestService(t *testing.T) (authdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: config.Config{AuthJWTSecret: "test-secret", AuthTokenTTL: time.Hour},
	})
	return svc, db, node
}

func seedUser(t *testing.T, db *gorm.DB, node *snowflake.Node, email, password string, role authdomain.Role, active bool) authdomain.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	schoolID := node.Generate()
	user := authdomain.User{
		ID:           node.Generate(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hashed),
		Role:         role,
		SchoolID:     &schoolID,
		Active:       active,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	svc, db, node := newTestService(t)
	user := seedUser(t, db, node, "admin@school.test", "s3cret", authdomain.RoleAdmin, true)

	resp, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "Admin@School.Test",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, authdomain.RoleAdmin, resp.Role)
	assert.NotEmpty(t, resp.Token)

	identity, err := svc.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, authdomain.RoleAdmin, identity.Role)
	require.NotNil(t, identity.SchoolID)
	assert.Equal(t, *user.SchoolID, *identity.SchoolID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, db, node := newTestService(t)
	seedUser(t, db, node, "admin@school.test", "s3cret", authdomain.RoleAdmin, true)

	_, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "admin@school.test",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@school.test",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	svc, db, node := newTestService(t)
	seedUser(t, db, node, "gone@school.test", "s3cret", authdomain.RoleAdmin, false)

	_, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "gone@school.test",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, authdomain.ErrUserInactive)
}

func TestParseToken_Garbage(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestParseToken_WrongSecret(t *testing.T) {
	svc, db, node := newTestService(t)
	seedUser(t, db, node, "admin@school.test", "s3cret", authdomain.RoleAdmin, true)

	resp, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "admin@school.test",
		Password: "s3cret",
	})
	require.NoError(t, err)

	other := NewService(ServiceParam{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: config.Config{AuthJWTSecret: "different-secret", AuthTokenTTL: time.Hour},
	})
	_, err = other.ParseToken(resp.Token)
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.User{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: config.Config{AuthJWTSecret: "test-secret", AuthTokenTTL: -time.Minute},
	})
	seedUser(t, db, node, "admin@school.test", "s3cret", authdomain.RoleAdmin, true)

	resp, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "admin@school.test",
		Password: "s3cret",
	})
	require.NoError(t, err)

	_, err = svc.ParseToken(resp.Token)
	assert.ErrorIs(t, err, authdomain.ErrTokenExpired)
}
