package models

import "time"

// Enrollment links one student to one class. The (student_id, class_id)
// pair is unique; deleting the class or the student removes the row.
type Enrollment struct {
	ID        int64     `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ClassID   int64     `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RosterEntry enriches an enrollment with student identity for roster views.
type RosterEntry struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}
