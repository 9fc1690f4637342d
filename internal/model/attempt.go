package model

import (
	"time"

	"gorm.io/gorm"
)

// AttemptState is the attempt lifecycle. IN_PROGRESS is the only
// non-terminal state; every transition out of it is final.
type AttemptState string

const (
	AttemptInProgress AttemptState = "IN_PROGRESS"
	AttemptSubmitted  AttemptState = "SUBMITTED"
	AttemptExpired    AttemptState = "EXPIRED"
	AttemptAbandoned  AttemptState = "ABANDONED"
)

// Terminal reports whether no further transitions are allowed.
func (s AttemptState) Terminal() bool {
	return s == AttemptSubmitted || s == AttemptExpired || s == AttemptAbandoned
}

// Attempt is one user's timed run through an exam's question set.
//
// StartedAt and DeadlineAt are set once at creation and never change.
// SubmittedAt and all derived totals are written exactly once, in the
// same transaction as the transition into a terminal state. At most one
// IN_PROGRESS attempt may exist per (UserID, ExamID); a partial unique
// index enforces this at the storage layer (see migrations in cmd/main.go).
type Attempt struct {
	ID         uint         `gorm:"primarykey" json:"id"`
	ExamID     uint         `json:"exam_id" gorm:"not null;index"`
	Exam       Exam         `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	UserID     uint         `json:"user_id" gorm:"not null;index:idx_attempts_user_exam"`
	State      AttemptState `json:"state" gorm:"not null;default:'IN_PROGRESS';index"`
	StartedAt  time.Time    `json:"started_at" gorm:"not null"`
	DeadlineAt time.Time    `json:"deadline_at" gorm:"not null;index"`

	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	TotalMarksObtained *float64   `json:"total_marks_obtained,omitempty"`
	TotalMarksPossible *float64   `json:"total_marks_possible,omitempty"`
	Percentage         *float64   `json:"percentage,omitempty"`
	IsPassed           *bool      `json:"is_passed,omitempty"`
	CorrectCount       int        `json:"correct_count"`
	IncorrectCount     int        `json:"incorrect_count"`
	SkippedCount       int        `json:"skipped_count"`

	Rank       *int     `json:"rank,omitempty"`
	Percentile *float64 `json:"percentile,omitempty"`

	Answers   []AnswerRecord `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
