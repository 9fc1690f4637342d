package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnswerRecord is the per-question child of an Attempt. Exactly one record
// exists per question per attempt (upsert semantics on the unique index),
// and the recorded question ids are always a subset of the exam's question
// set. RawAnswer keeps the submitted payload verbatim so the grading fields
// can be recomputed; IsCorrect and MarksAwarded are filled in when the
// attempt is finalized.
type AnswerRecord struct {
	ID         uint `gorm:"primarykey" json:"id"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`

	RawAnswer    datatypes.JSON `json:"raw_answer,omitempty"`
	IsSkipped    bool           `json:"is_skipped"`
	IsCorrect    bool           `json:"is_correct"`
	MarksAwarded float64        `json:"marks_awarded"` // signed; negative marking shows here

	TimeTakenSeconds   *int `json:"time_taken_seconds,omitempty"`
	IsFlaggedForReview bool `json:"is_flagged_for_review"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
