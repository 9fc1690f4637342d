package model

import (
	"time"

	"gorm.io/gorm"
)

// ShowResultsPolicy controls when a finalized result becomes visible.
type ShowResultsPolicy string

const (
	ShowResultsImmediate      ShowResultsPolicy = "IMMEDIATE"
	ShowResultsAfterEndWindow ShowResultsPolicy = "AFTER_END_WINDOW"
)

// Exam is owned by the catalog; this engine only reads it.
type Exam struct {
	ID                uint              `gorm:"primarykey" json:"id"`
	Title             string            `json:"title" gorm:"not null"`
	Description       string            `json:"description,omitempty"`
	Published         bool              `json:"published" gorm:"default:false;index"`
	DurationMinutes   int               `json:"duration_minutes" gorm:"not null"`
	TotalMarks        float64           `json:"total_marks" gorm:"not null"`
	PassingMarks      float64           `json:"passing_marks" gorm:"not null"` // invariant: <= TotalMarks
	TotalQuestions    int               `json:"total_questions" gorm:"not null"`
	ShowResultsPolicy ShowResultsPolicy `json:"show_results_policy" gorm:"default:'IMMEDIATE'"`
	AllowReview       bool              `json:"allow_review" gorm:"default:true"`
	PartialMarking    bool              `json:"partial_marking" gorm:"default:false"`
	StartWindow       *time.Time        `json:"start_window,omitempty"`
	EndWindow         *time.Time        `json:"end_window,omitempty"`
	MaxAttempts       int               `json:"max_attempts" gorm:"default:1"`
	Questions         []Question        `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`
}
