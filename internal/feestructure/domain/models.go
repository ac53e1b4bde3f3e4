// Package domain contains fee structure models and the resolver contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FeeHead is one billable head inside a structure. Amounts are int64 minor
// units (paise).
type FeeHead struct {
	HeadCode   string `json:"head_code"`
	HeadName   string `json:"head_name"`
	Amount     int64  `json:"amount"`
	IsOptional bool   `json:"is_optional"`
}

// FeeStructure is the fee template for a course/year. A nil SchoolID marks
// the global default; a school-specific active structure takes precedence.
// Structures are frozen into invoices at creation time, so later edits never
// touch issued invoices.
type FeeStructure struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	SchoolID  *snowflake.ID  `json:"school_id,omitempty" gorm:"index;uniqueIndex:ux_fee_structure_scope"`
	AcYear    string         `json:"ac_year" gorm:"type:text;not null;uniqueIndex:ux_fee_structure_scope"`
	CourseID  snowflake.ID   `json:"course_id" gorm:"not null;index;uniqueIndex:ux_fee_structure_scope"`
	Heads     datatypes.JSON `json:"heads" gorm:"type:jsonb;not null"`
	Active    bool           `json:"active" gorm:"not null;default:true"`
	Remarks   string         `json:"remarks,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FeeStructure) TableName() string { return "fee_structures" }

type UpsertRequest struct {
	SchoolID *snowflake.ID `json:"school_id"`
	AcYear   string        `json:"ac_year"`
	CourseID snowflake.ID  `json:"course_id"`
	Heads    []FeeHead     `json:"heads"`
	Active   bool          `json:"active"`
	Remarks  string        `json:"remarks"`
}

type Service interface {
	// Resolve returns the applicable active structure for a student's
	// course/year: school-specific first, then the global default.
	Resolve(ctx context.Context, schoolID snowflake.ID, acYear string, courseID snowflake.ID) (FeeStructure, []FeeHead, error)
	Upsert(ctx context.Context, req UpsertRequest) (FeeStructure, error)
	List(ctx context.Context, acYear string) ([]FeeStructure, error)
}

var (
	ErrNotConfigured = errors.New("no fee structure configured")
	ErrInvalidHeads  = errors.New("fee structure needs at least one head")
)
