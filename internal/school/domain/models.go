// Package domain contains the tenant registry models: schools (Niswan
// units), their supervisors, students, and courses. Full CRUD over these
// lives elsewhere; this package carries just enough persistence for access
// scoping, invoice creation, and referential validation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// School is one Niswan unit under the head office.
type School struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	Code         string        `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name         string        `json:"name" gorm:"type:text;not null"`
	SupervisorID *snowflake.ID `json:"supervisor_id,omitempty" gorm:"index"`
	Active       bool          `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (School) TableName() string { return "schools" }

// Supervisor oversees the schools on one route.
type Supervisor struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Route     string       `json:"route" gorm:"type:text"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Supervisor) TableName() string { return "supervisors" }

// Student belongs to exactly one school.
type Student struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SchoolID  snowflake.ID `json:"school_id" gorm:"not null;index"`
	RollNo    string       `json:"roll_no" gorm:"type:text;not null;uniqueIndex"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Student) TableName() string { return "students" }

// Course is an academic program fee structures and invoices refer to.
type Course struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Code      string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Course) TableName() string { return "courses" }
