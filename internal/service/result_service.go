package service

import (
	"encoding/json"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/Margays/internal/dto"
	"github.com/lshigami/Margays/internal/model"
	"github.com/rs/zerolog/log"
)

// ResultService assembles the client-facing result payload. It enforces the
// two disclosure policies: per-question detail (and answer keys) only when
// the exam allows review, and no scores at all while the exam's result
// policy defers them.
type ResultService interface {
	BuildResult(attempt *model.Attempt, exam *model.Exam, records []model.AnswerRecord, now time.Time) *dto.ResultDTO
	BuildSummary(attempt *model.Attempt) dto.AttemptSummaryDTO
}

type resultService struct{}

func NewResultService() ResultService {
	return &resultService{}
}

func (s *resultService) BuildResult(attempt *model.Attempt, exam *model.Exam, records []model.AnswerRecord, now time.Time) *dto.ResultDTO {
	result := &dto.ResultDTO{
		AttemptID:   attempt.ID,
		ExamID:      attempt.ExamID,
		State:       string(attempt.State),
		SubmittedAt: attempt.SubmittedAt,
	}

	if deferred, availableAt := resultsDeferred(exam, now); deferred {
		result.ResultPending = true
		result.ResultAvailableAt = availableAt
		return result
	}

	summary := &dto.ScoreSummaryDTO{
		TotalMarks:     exam.TotalMarks,
		CorrectCount:   attempt.CorrectCount,
		IncorrectCount: attempt.IncorrectCount,
		SkippedCount:   attempt.SkippedCount,
		Rank:           attempt.Rank,
		Percentile:     attempt.Percentile,
	}
	if attempt.TotalMarksObtained != nil {
		summary.Score = *attempt.TotalMarksObtained
	}
	if attempt.Percentage != nil {
		summary.Percentage = *attempt.Percentage
	}
	if attempt.IsPassed != nil {
		summary.IsPassed = *attempt.IsPassed
	}
	result.Summary = summary

	if exam.AllowReview {
		result.Answers = buildAnswerReview(exam, records)
	}
	return result
}

func (s *resultService) BuildSummary(attempt *model.Attempt) dto.AttemptSummaryDTO {
	var summary dto.AttemptSummaryDTO
	if err := copier.Copy(&summary, attempt); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to copy attempt to summary DTO")
	}
	summary.AttemptID = attempt.ID
	summary.State = string(attempt.State)
	summary.Score = attempt.TotalMarksObtained
	return summary
}

// resultsDeferred reports whether disclosure is still held back by the
// AFTER_END_WINDOW policy.
func resultsDeferred(exam *model.Exam, now time.Time) (bool, *time.Time) {
	if exam.ShowResultsPolicy != model.ShowResultsAfterEndWindow || exam.EndWindow == nil {
		return false, nil
	}
	if now.Before(*exam.EndWindow) {
		return true, exam.EndWindow
	}
	return false, nil
}

func buildAnswerReview(exam *model.Exam, records []model.AnswerRecord) []dto.AnswerReviewDTO {
	byQuestion := make(map[uint]*model.AnswerRecord, len(records))
	for i := range records {
		byQuestion[records[i].QuestionID] = &records[i]
	}

	review := make([]dto.AnswerReviewDTO, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		item := dto.AnswerReviewDTO{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			CorrectAnswer: json.RawMessage(q.CorrectAnswer),
			IsSkipped:     true,
		}
		if rec, ok := byQuestion[q.ID]; ok {
			item.RawAnswer = json.RawMessage(rec.RawAnswer)
			item.IsSkipped = rec.IsSkipped
			item.IsCorrect = rec.IsCorrect
			item.MarksAwarded = rec.MarksAwarded
		}
		review = append(review, item)
	}
	return review
}
