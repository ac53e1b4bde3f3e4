// Package seed bootstraps the accounts a fresh deployment needs before
// anyone can log in.
package seed

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
)

const (
	defaultAdminEmail    = "admin@unis.local"
	defaultAdminPassword = "admin"
	defaultAdminName     = "Head Office Admin"
)

// EnsureSuperadmin creates the head office superadmin when no user holds the
// role yet. Email and password come from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD, falling back to local defaults.
func EnsureSuperadmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	email := strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL"))
	if email == "" {
		email = defaultAdminEmail
	}
	pass := os.Getenv("SEED_ADMIN_PASSWORD")
	if pass == "" {
		pass = defaultAdminPassword
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&authdomain.User{}).
			Where("role = ?", authdomain.RoleSuperadmin).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user := authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			Name:         defaultAdminName,
			PasswordHash: string(hashed),
			Role:         authdomain.RoleSuperadmin,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
