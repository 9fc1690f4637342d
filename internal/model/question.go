package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionType is the closed set of auto-gradable question kinds.
type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	MultipleSelect QuestionType = "MULTIPLE_SELECT" // alias of MULTIPLE_CHOICE in older catalogs
	TrueFalse      QuestionType = "TRUE_FALSE"
	Numerical      QuestionType = "NUMERICAL"
)

// Option is one entry of a choice question's ordered option list.
// Stored inside Question.Options as a JSON array with stable ids.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is owned by the catalog; this engine only reads it.
//
// CorrectAnswer holds the raw JSON answer key, shaped by Type:
// a single option id for SINGLE_CHOICE, a bool for TRUE_FALSE,
// an array of option ids for MULTIPLE_CHOICE/MULTIPLE_SELECT and
// a number for NUMERICAL.
type Question struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	ExamID           uint           `json:"exam_id" gorm:"not null;index"`
	Type             QuestionType   `json:"type" gorm:"not null"`
	Prompt           string         `json:"prompt" gorm:"type:text;not null"`
	Options          datatypes.JSON `json:"options,omitempty"`
	CorrectAnswer    datatypes.JSON `json:"correct_answer,omitempty"`
	Marks            float64        `json:"marks" gorm:"not null"`
	NegativeMarks    float64        `json:"negative_marks" gorm:"default:0"` // deducted on incorrect only
	NumericTolerance float64        `json:"numeric_tolerance" gorm:"default:0"`
	OrderInExam      int            `json:"order_in_exam" gorm:"not null"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
