package dto

import "encoding/json"

// AnswerInputDTO carries one submitted answer. RawAnswer keeps the payload
// untyped on purpose: its shape depends on the question type (option id
// string, array of option ids, bool, or number) and the evaluator decides
// how to read it. A missing or empty value means the question was skipped.
type AnswerInputDTO struct {
	QuestionID         uint            `json:"question_id" binding:"required"`
	RawAnswer          json.RawMessage `json:"raw_answer"`
	TimeTakenSeconds   *int            `json:"time_taken_seconds,omitempty"`
	IsFlaggedForReview bool            `json:"is_flagged_for_review,omitempty"`
}

// SaveAnswersRequest is the incremental save of answers during an attempt.
type SaveAnswersRequest struct {
	Answers []AnswerInputDTO `json:"answers" binding:"required,dive"`
}

// SubmitAttemptRequest is the final batch submission. Answers may be empty:
// a bare submit scores whatever was saved incrementally.
type SubmitAttemptRequest struct {
	Answers []AnswerInputDTO `json:"answers" binding:"omitempty,dive"`
}
