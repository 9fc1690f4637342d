package service

import (
	"math"

	"github.com/lshigami/Margays/internal/model"
)

// AttemptTotals is the aggregate outcome of one attempt. CorrectCount +
// IncorrectCount + SkippedCount always equals the exam's question count:
// questions with no answer record are counted as skipped.
type AttemptTotals struct {
	TotalMarksObtained float64
	TotalMarksPossible float64
	Percentage         float64
	IsPassed           bool
	CorrectCount       int
	IncorrectCount     int
	SkippedCount       int
}

// ScoringService folds per-question evaluations into attempt totals.
//
// Clamping policy: per-question marks stay signed on the answer records, but
// the final attempt total is clamped at zero: negative marking can zero a
// score, never take it below. This is a fixed policy, not a display concern.
type ScoringService interface {
	Aggregate(evaluations []Evaluation, exam *model.Exam) AttemptTotals
}

type scoringService struct{}

func NewScoringService() ScoringService {
	return &scoringService{}
}

func (s *scoringService) Aggregate(evaluations []Evaluation, exam *model.Exam) AttemptTotals {
	totals := AttemptTotals{TotalMarksPossible: exam.TotalMarks}

	sum := 0.0
	for _, ev := range evaluations {
		sum += ev.Verdict.MarksAwarded
		switch {
		case ev.Verdict.IsSkipped:
			totals.SkippedCount++
		case ev.Verdict.IsCorrect:
			totals.CorrectCount++
		default:
			totals.IncorrectCount++
		}
	}

	// Questions never answered produce no evaluation; they count as skipped.
	if unseen := exam.TotalQuestions - len(evaluations); unseen > 0 {
		totals.SkippedCount += unseen
	}

	if sum < 0 {
		sum = 0
	}
	totals.TotalMarksObtained = sum

	if exam.TotalMarks > 0 {
		totals.Percentage = roundHalfUp(sum/exam.TotalMarks*100, 2)
	}
	totals.IsPassed = sum >= exam.PassingMarks

	return totals
}

// roundHalfUp rounds to the given number of decimals with ties going up,
// matching how marks are conventionally reported.
func roundHalfUp(v float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.Floor(v*shift+0.5) / shift
}
