package service

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/lshigami/Margays/internal/model"
	"gorm.io/datatypes"
)

func singleChoiceQuestion() *model.Question {
	return &model.Question{
		Type:          model.SingleChoice,
		Options:       datatypes.JSON(`[{"id":"A","text":"Paris"},{"id":"B","text":"Lyon"},{"id":"C","text":"Nice"}]`),
		CorrectAnswer: datatypes.JSON(`"B"`),
		Marks:         4,
		NegativeMarks: 1,
	}
}

func multiChoiceQuestion() *model.Question {
	return &model.Question{
		Type:          model.MultipleChoice,
		Options:       datatypes.JSON(`[{"id":"A"},{"id":"B"},{"id":"C"},{"id":"D"}]`),
		CorrectAnswer: datatypes.JSON(`["A","C"]`),
		Marks:         4,
		NegativeMarks: 2,
	}
}

func TestEvaluateSingleChoice(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := singleChoiceQuestion()

	tests := []struct {
		name        string
		raw         string
		wantCorrect bool
		wantSkipped bool
		wantAwarded float64
	}{
		{"correct option", `"B"`, true, false, 4},
		{"correct option as array", `["B"]`, true, false, 4},
		{"wrong option", `"A"`, false, false, -1},
		{"unknown option id counts as incorrect", `"Z"`, false, false, -1},
		{"null is skipped", `null`, false, true, 0},
		{"empty string is skipped", `""`, false, true, 0},
		{"empty array is skipped", `[]`, false, true, 0},
		{"malformed payload is skipped", `{"nope":`, false, true, 0},
		{"multi-element array is skipped", `["A","B"]`, false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluator.Evaluate(q, json.RawMessage(tt.raw), false)
			if v.IsCorrect != tt.wantCorrect || v.IsSkipped != tt.wantSkipped || v.MarksAwarded != tt.wantAwarded {
				t.Errorf("Evaluate(%s) = %+v, want correct=%v skipped=%v awarded=%v",
					tt.raw, v, tt.wantCorrect, tt.wantSkipped, tt.wantAwarded)
			}
		})
	}
}

func TestEvaluateTrueFalse(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := &model.Question{
		Type:          model.TrueFalse,
		CorrectAnswer: datatypes.JSON(`true`),
		Marks:         2,
		NegativeMarks: 0.5,
	}

	tests := []struct {
		name        string
		raw         string
		wantAwarded float64
		wantSkipped bool
	}{
		{"bool true", `true`, 2, false},
		{"bool false", `false`, -0.5, false},
		{"string true", `"true"`, 2, false},
		{"string false", `"False"`, -0.5, false},
		{"non-boolean is skipped", `"yes"`, 0, true},
		{"null is skipped", `null`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluator.Evaluate(q, json.RawMessage(tt.raw), false)
			if v.MarksAwarded != tt.wantAwarded || v.IsSkipped != tt.wantSkipped {
				t.Errorf("Evaluate(%s) = %+v, want awarded=%v skipped=%v", tt.raw, v, tt.wantAwarded, tt.wantSkipped)
			}
		})
	}
}

func TestEvaluateMultipleChoiceAllOrNothing(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := multiChoiceQuestion()

	tests := []struct {
		name        string
		raw         string
		wantCorrect bool
		wantAwarded float64
	}{
		{"exact set", `["A","C"]`, true, 4},
		{"exact set different order", `["C","A"]`, true, 4},
		{"subset is incorrect", `["A"]`, false, -2},
		{"superset is incorrect", `["A","C","D"]`, false, -2},
		{"disjoint is incorrect", `["B","D"]`, false, -2},
		{"unknown option id is incorrect", `["A","Z"]`, false, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluator.Evaluate(q, json.RawMessage(tt.raw), false)
			if v.IsCorrect != tt.wantCorrect || v.MarksAwarded != tt.wantAwarded {
				t.Errorf("Evaluate(%s) = %+v, want correct=%v awarded=%v", tt.raw, v, tt.wantCorrect, tt.wantAwarded)
			}
		})
	}
}

func TestEvaluateMultipleChoicePartialMarking(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := multiChoiceQuestion() // correct = {A, C}, marks = 4

	tests := []struct {
		name        string
		raw         string
		wantCorrect bool
		wantAwarded float64
	}{
		{"full credit", `["A","C"]`, true, 4},
		{"half credit for one of two", `["A"]`, false, 2},
		{"wrong pick offsets right pick", `["A","B"]`, false, 0},
		{"never below zero", `["B","D"]`, false, 0},
		{"extra wrong pick reduces credit", `["A","C","B"]`, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluator.Evaluate(q, json.RawMessage(tt.raw), true)
			if v.IsCorrect != tt.wantCorrect || v.MarksAwarded != tt.wantAwarded {
				t.Errorf("Evaluate(%s) = %+v, want correct=%v awarded=%v", tt.raw, v, tt.wantCorrect, tt.wantAwarded)
			}
		})
	}
}

func TestEvaluateNumerical(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := &model.Question{
		Type:             model.Numerical,
		CorrectAnswer:    datatypes.JSON(`42`),
		Marks:            4,
		NegativeMarks:    1,
		NumericTolerance: 0.5,
	}

	tests := []struct {
		name        string
		raw         string
		wantAwarded float64
		wantSkipped bool
	}{
		{"exact", `42`, 4, false},
		{"within tolerance", `42.3`, 4, false},
		{"at tolerance boundary", `42.5`, 4, false},
		{"outside tolerance", `42.51`, -1, false},
		{"numeric string grades identically", `"42.0"`, 4, false},
		{"non-numeric string is skipped", `"forty-two"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluator.Evaluate(q, json.RawMessage(tt.raw), false)
			if v.MarksAwarded != tt.wantAwarded || v.IsSkipped != tt.wantSkipped {
				t.Errorf("Evaluate(%s) = %+v, want awarded=%v skipped=%v", tt.raw, v, tt.wantAwarded, tt.wantSkipped)
			}
		})
	}
}

func TestEvaluateNumericalZeroTolerance(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := &model.Question{
		Type:          model.Numerical,
		CorrectAnswer: datatypes.JSON(`3.14`),
		Marks:         1,
	}

	if v := evaluator.Evaluate(q, json.RawMessage(`3.14`), false); !v.IsCorrect {
		t.Errorf("exact match with zero tolerance should be correct, got %+v", v)
	}
	if v := evaluator.Evaluate(q, json.RawMessage(`3.141`), false); v.IsCorrect {
		t.Errorf("off by 0.001 with zero tolerance should be incorrect, got %+v", v)
	}
}

func TestEvaluateUnknownTypeIsSkipped(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := &model.Question{Type: "ESSAY", Marks: 10}

	v := evaluator.Evaluate(q, json.RawMessage(`"some prose"`), false)
	if !v.IsSkipped || v.MarksAwarded != 0 {
		t.Errorf("unknown question type should grade as skipped, got %+v", v)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	evaluator := NewEvaluatorService()
	q := multiChoiceQuestion()
	raw := json.RawMessage(`["C","A"]`)

	first := evaluator.Evaluate(q, raw, true)
	for i := 0; i < 10; i++ {
		if got := evaluator.Evaluate(q, raw, true); got != first {
			t.Fatalf("evaluation %d differs: %+v vs %+v", i, got, first)
		}
	}
	if math.IsNaN(first.MarksAwarded) {
		t.Fatal("awarded marks must never be NaN")
	}
}
