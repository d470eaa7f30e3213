package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ClassStatus represents the lifecycle state of a class.
type ClassStatus string

const (
	ClassStatusActive   ClassStatus = "active"
	ClassStatusInactive ClassStatus = "inactive"
	ClassStatusArchived ClassStatus = "archived"
)

// Valid reports whether the status is a recognised value.
func (s ClassStatus) Valid() bool {
	switch s {
	case ClassStatusActive, ClassStatusInactive, ClassStatusArchived:
		return true
	}
	return false
}

// DefaultClassCapacity applies when a create request omits capacity.
const DefaultClassCapacity = 50

// ScheduleList is an ordered sequence of schedule-slot records. The slot
// shape is owned by clients; entries round-trip losslessly through the jsonb
// column without reordering or field loss.
type ScheduleList []json.RawMessage

// Value implements driver.Valuer, storing the list as jsonb.
func (s ScheduleList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *ScheduleList) Scan(src interface{}) error {
	if src == nil {
		*s = ScheduleList{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported schedules source type %T", src)
	}
}

// Class belongs to one subject and is taught by one teacher-role user. The
// invite code grants self-service enrollment and is globally unique.
type Class struct {
	ID         int64        `db:"id" json:"id"`
	SubjectID  int64        `db:"subject_id" json:"subject_id"`
	TeacherID  string       `db:"teacher_id" json:"teacher_id"`
	InviteCode string       `db:"invite_code" json:"invite_code"`
	Name       string       `db:"name" json:"name"`
	Capacity   int          `db:"capacity" json:"capacity"`
	Banner     *string      `db:"banner" json:"banner,omitempty"`
	Status     ClassStatus  `db:"status" json:"status"`
	Schedules  ScheduleList `db:"schedules" json:"schedules"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	SubjectID int64
	TeacherID string
	Status    ClassStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
