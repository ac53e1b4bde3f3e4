package repository

import (
	"context"

	"github.com/Shihab-md/unis-server-sub000/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic persistence facade over gorm for simple lookups.
// Workflow operations that need row locks or raw SQL go through the
// transaction handle directly.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
