package dto

import (
	"encoding/json"
	"time"
)

// OptionDTO is a choice question option as shown to the candidate.
type OptionDTO struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionForAttemptDTO is a question as handed out when an attempt starts.
// It never carries the answer key.
type QuestionForAttemptDTO struct {
	ID               uint        `json:"id"`
	Type             string      `json:"type"`
	Prompt           string      `json:"prompt"`
	Options          []OptionDTO `json:"options,omitempty"`
	Marks            float64     `json:"marks"`
	NegativeMarks    float64     `json:"negative_marks"`
	NumericTolerance float64     `json:"numeric_tolerance,omitempty"`
	OrderInExam      int         `json:"order_in_exam"`
}

// AttemptHandleDTO is returned by StartAttempt: everything the client needs
// to run the countdown and render the paper.
type AttemptHandleDTO struct {
	AttemptID  uint                    `json:"attempt_id"`
	ExamID     uint                    `json:"exam_id"`
	State      string                  `json:"state"`
	StartedAt  time.Time               `json:"started_at"`
	DeadlineAt time.Time               `json:"deadline_at"`
	Resumed    bool                    `json:"resumed"`
	Questions  []QuestionForAttemptDTO `json:"questions"`
}

// AttemptStatusDTO backs the client-side countdown. TimeRemainingSeconds is
// always computed from the server-side deadline.
type AttemptStatusDTO struct {
	AttemptID            uint   `json:"attempt_id"`
	State                string `json:"state"`
	TimeRemainingSeconds int    `json:"time_remaining_seconds"`
}

// ScoreSummaryDTO is the aggregate part of a finalized result.
type ScoreSummaryDTO struct {
	Score          float64  `json:"score"`
	TotalMarks     float64  `json:"total_marks"`
	Percentage     float64  `json:"percentage"`
	IsPassed       bool     `json:"is_passed"`
	CorrectCount   int      `json:"correct_count"`
	IncorrectCount int      `json:"incorrect_count"`
	SkippedCount   int      `json:"skipped_count"`
	Rank           *int     `json:"rank,omitempty"`
	Percentile     *float64 `json:"percentile,omitempty"`
}

// AnswerReviewDTO is the per-question breakdown, returned only when the exam
// allows review.
type AnswerReviewDTO struct {
	QuestionID    uint            `json:"question_id"`
	Prompt        string          `json:"prompt"`
	RawAnswer     json.RawMessage `json:"raw_answer,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	IsSkipped     bool            `json:"is_skipped"`
	IsCorrect     bool            `json:"is_correct"`
	MarksAwarded  float64         `json:"marks_awarded"`
}

// ResultDTO is the client-facing result. While the exam's result policy
// defers disclosure, Summary and Answers stay empty and ResultPending is set.
type ResultDTO struct {
	AttemptID         uint              `json:"attempt_id"`
	ExamID            uint              `json:"exam_id"`
	State             string            `json:"state"`
	SubmittedAt       *time.Time        `json:"submitted_at,omitempty"`
	ResultPending     bool              `json:"result_pending,omitempty"`
	ResultAvailableAt *time.Time        `json:"result_available_at,omitempty"`
	Summary           *ScoreSummaryDTO  `json:"summary,omitempty"`
	Answers           []AnswerReviewDTO `json:"answers,omitempty"`
}

// AttemptSummaryDTO is one row of a user's attempt history for an exam.
type AttemptSummaryDTO struct {
	AttemptID   uint       `json:"attempt_id"`
	ExamID      uint       `json:"exam_id"`
	State       string     `json:"state"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Score       *float64   `json:"score,omitempty"`
	Percentage  *float64   `json:"percentage,omitempty"`
	IsPassed    *bool      `json:"is_passed,omitempty"`
	Rank        *int       `json:"rank,omitempty"`
	Percentile  *float64   `json:"percentile,omitempty"`
}

// SaveAnswersResponse acknowledges an incremental save.
type SaveAnswersResponse struct {
	AttemptID  uint      `json:"attempt_id"`
	SavedCount int       `json:"saved_count"`
	DeadlineAt time.Time `json:"deadline_at"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
