package service

import (
	"testing"

	"github.com/lshigami/Margays/internal/model"
)

func TestAggregateBasicTotals(t *testing.T) {
	scoring := NewScoringService()
	exam := &model.Exam{TotalMarks: 100, PassingMarks: 40, TotalQuestions: 3}

	evals := []Evaluation{
		{QuestionID: 1, Verdict: Verdict{IsCorrect: true, MarksAwarded: 4}},
		{QuestionID: 2, Verdict: Verdict{MarksAwarded: -1}},
		{QuestionID: 3, Verdict: Verdict{IsSkipped: true}},
	}

	totals := scoring.Aggregate(evals, exam)

	if totals.TotalMarksObtained != 3 {
		t.Errorf("TotalMarksObtained = %v, want 3", totals.TotalMarksObtained)
	}
	if totals.CorrectCount != 1 || totals.IncorrectCount != 1 || totals.SkippedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", totals.CorrectCount, totals.IncorrectCount, totals.SkippedCount)
	}
	if totals.Percentage != 3.00 {
		t.Errorf("Percentage = %v, want 3.00", totals.Percentage)
	}
	if totals.IsPassed {
		t.Error("3/100 should not pass with passing marks 40")
	}
}

func TestAggregateClampsNegativeTotalToZero(t *testing.T) {
	scoring := NewScoringService()
	exam := &model.Exam{TotalMarks: 10, PassingMarks: 5, TotalQuestions: 2}

	evals := []Evaluation{
		{QuestionID: 1, Verdict: Verdict{MarksAwarded: -1}},
		{QuestionID: 2, Verdict: Verdict{MarksAwarded: -2}},
	}

	totals := scoring.Aggregate(evals, exam)

	if totals.TotalMarksObtained != 0 {
		t.Errorf("TotalMarksObtained = %v, want 0 (clamped)", totals.TotalMarksObtained)
	}
	if totals.Percentage != 0 {
		t.Errorf("Percentage = %v, want 0", totals.Percentage)
	}
	// Per-question tallies keep the real outcome even when the sum clamps.
	if totals.IncorrectCount != 2 {
		t.Errorf("IncorrectCount = %d, want 2", totals.IncorrectCount)
	}
}

func TestAggregateCountsUnansweredAsSkipped(t *testing.T) {
	scoring := NewScoringService()
	exam := &model.Exam{TotalMarks: 20, TotalQuestions: 5}

	evals := []Evaluation{
		{QuestionID: 1, Verdict: Verdict{IsCorrect: true, MarksAwarded: 4}},
		{QuestionID: 2, Verdict: Verdict{MarksAwarded: -1}},
	}

	totals := scoring.Aggregate(evals, exam)

	if got := totals.CorrectCount + totals.IncorrectCount + totals.SkippedCount; got != exam.TotalQuestions {
		t.Errorf("counts sum to %d, want %d", got, exam.TotalQuestions)
	}
	if totals.SkippedCount != 3 {
		t.Errorf("SkippedCount = %d, want 3", totals.SkippedCount)
	}
}

func TestAggregatePercentageRoundsHalfUp(t *testing.T) {
	scoring := NewScoringService()

	tests := []struct {
		name     string
		obtained float64
		total    float64
		want     float64
	}{
		{"two thirds rounds up", 2, 3, 66.67},
		{"one third rounds down", 1, 3, 33.33},
		{"whole number unchanged", 5, 10, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exam := &model.Exam{TotalMarks: tt.total, TotalQuestions: 1}
			evals := []Evaluation{{QuestionID: 1, Verdict: Verdict{IsCorrect: true, MarksAwarded: tt.obtained}}}
			totals := scoring.Aggregate(evals, exam)
			if totals.Percentage != tt.want {
				t.Errorf("Percentage = %v, want %v", totals.Percentage, tt.want)
			}
		})
	}
}

func TestAggregatePassAtExactBoundary(t *testing.T) {
	scoring := NewScoringService()
	exam := &model.Exam{TotalMarks: 10, PassingMarks: 4, TotalQuestions: 1}

	evals := []Evaluation{{QuestionID: 1, Verdict: Verdict{IsCorrect: true, MarksAwarded: 4}}}
	totals := scoring.Aggregate(evals, exam)

	if !totals.IsPassed {
		t.Error("score equal to passing marks should pass")
	}
}

func TestAggregateEmptySubmission(t *testing.T) {
	scoring := NewScoringService()
	exam := &model.Exam{TotalMarks: 100, PassingMarks: 40, TotalQuestions: 4}

	totals := scoring.Aggregate(nil, exam)

	if totals.TotalMarksObtained != 0 || totals.Percentage != 0 || totals.IsPassed {
		t.Errorf("empty submission should score zero and fail, got %+v", totals)
	}
	if totals.SkippedCount != 4 {
		t.Errorf("SkippedCount = %d, want 4", totals.SkippedCount)
	}
}

func TestAggregateZeroTotalMarksAvoidsDivideByZero(t *testing.T) {
	scoring := NewScoringService()
	exam := &model.Exam{TotalMarks: 0, TotalQuestions: 1}

	totals := scoring.Aggregate([]Evaluation{{QuestionID: 1, Verdict: Verdict{IsCorrect: true, MarksAwarded: 1}}}, exam)

	if totals.Percentage != 0 {
		t.Errorf("Percentage = %v, want 0 when exam has no marks", totals.Percentage)
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{66.666666, 66.67},
		{66.664, 66.66},
		{33.333333, 33.33},
		{0, 0},
		{100, 100},
	}
	for _, tt := range tests {
		if got := roundHalfUp(tt.v, 2); got != tt.want {
			t.Errorf("roundHalfUp(%v, 2) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
