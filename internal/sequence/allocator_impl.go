package sequence

import (
	"context"
	"fmt"

	seqdomain "github.com/Shihab-md/unis-server-sub000/internal/sequence/domain"
	"gorm.io/gorm"
)

type allocator struct {
	db *gorm.DB
}

// NewAllocator returns an allocator bound to the given connection.
func NewAllocator(db *gorm.DB) seqdomain.Allocator {
	return &allocator{db: db}
}

// WithTx binds allocations to an open transaction so the numbering write
// commits or aborts together with the caller's workflow.
func WithTx(tx *gorm.DB) seqdomain.Allocator {
	return &allocator{db: tx}
}

// Next increments the named counter and returns the new value in one
// statement. The upsert keeps concurrent callers from ever observing the
// same number; there is no read-then-write window.
func (a *allocator) Next(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("sequence name is required")
	}

	var next int64
	err := a.db.WithContext(ctx).Raw(
		`INSERT INTO sequence_counters (name, current_number)
		 VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE
		 SET current_number = sequence_counters.current_number + 1
		 RETURNING current_number`,
		name,
	).Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("allocate sequence %s: %w", name, err)
	}
	if next <= 0 {
		return 0, fmt.Errorf("allocate sequence %s: empty result", name)
	}
	return next, nil
}

func (a *allocator) NextFormatted(ctx context.Context, name, prefix string, pad int) (string, error) {
	next, err := a.Next(ctx, name)
	if err != nil {
		return "", err
	}
	return FormatNumber(prefix, pad, next)
}
