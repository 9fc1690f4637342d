package service

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lshigami/Margays/internal/model"
)

// Verdict is the outcome of grading one answer against one question.
// MarksAwarded is signed: +marks on correct, -negativeMarks on incorrect,
// 0 on skipped.
type Verdict struct {
	IsCorrect    bool
	IsSkipped    bool
	MarksAwarded float64
}

// Evaluation pairs a verdict with the question it belongs to.
type Evaluation struct {
	QuestionID uint
	Verdict    Verdict
}

// EvaluatorService grades a raw submitted answer against a question
// definition. It is pure: no I/O, deterministic, and total. Malformed
// payloads degrade to skipped and unknown option ids count as incorrect,
// never as an error.
type EvaluatorService interface {
	Evaluate(question *model.Question, rawAnswer json.RawMessage, partialMarking bool) Verdict
}

type evaluatorService struct{}

func NewEvaluatorService() EvaluatorService {
	return &evaluatorService{}
}

func (e *evaluatorService) Evaluate(question *model.Question, rawAnswer json.RawMessage, partialMarking bool) Verdict {
	switch question.Type {
	case model.SingleChoice:
		return evaluateSingleChoice(question, rawAnswer)
	case model.TrueFalse:
		return evaluateTrueFalse(question, rawAnswer)
	case model.MultipleChoice, model.MultipleSelect:
		return evaluateMultipleChoice(question, rawAnswer, partialMarking)
	case model.Numerical:
		return evaluateNumerical(question, rawAnswer)
	default:
		// Unknown types cannot be graded; treat as skipped to stay total.
		return skipped()
	}
}

func evaluateSingleChoice(q *model.Question, raw json.RawMessage) Verdict {
	selected, ok := parseSingleSelection(raw)
	if !ok {
		return skipped()
	}
	correct, ok := parseSingleSelection(json.RawMessage(q.CorrectAnswer))
	if !ok {
		return skipped()
	}
	// An option id outside the question's option list is a wrong answer,
	// not an error.
	if !optionExists(q, selected) {
		return incorrect(q)
	}
	if selected == correct {
		return correctVerdict(q)
	}
	return incorrect(q)
}

func evaluateTrueFalse(q *model.Question, raw json.RawMessage) Verdict {
	answered, ok := parseBoolean(raw)
	if !ok {
		return skipped()
	}
	correct, ok := parseBoolean(json.RawMessage(q.CorrectAnswer))
	if !ok {
		return skipped()
	}
	if answered == correct {
		return correctVerdict(q)
	}
	return incorrect(q)
}

func evaluateMultipleChoice(q *model.Question, raw json.RawMessage, partialMarking bool) Verdict {
	selected, ok := parseMultiSelection(raw)
	if !ok || len(selected) == 0 {
		return skipped()
	}
	correct, ok := parseMultiSelection(json.RawMessage(q.CorrectAnswer))
	if !ok || len(correct) == 0 {
		return skipped()
	}

	if partialMarking {
		return partialCreditVerdict(q, selected, correct)
	}

	for _, id := range selected {
		if !optionExists(q, id) {
			return incorrect(q)
		}
	}
	if equalStringSets(selected, correct) {
		return correctVerdict(q)
	}
	return incorrect(q)
}

// partialCreditVerdict awards marks * (correctSelected - incorrectSelected) /
// totalCorrectOptions, floored at zero. Only reachable when the exam
// explicitly enables partial marking; full negative marking never applies on
// this path.
func partialCreditVerdict(q *model.Question, selected, correct []string) Verdict {
	correctSet := make(map[string]struct{}, len(correct))
	for _, id := range correct {
		correctSet[id] = struct{}{}
	}

	correctSelected, incorrectSelected := 0, 0
	for _, id := range selected {
		if _, ok := correctSet[id]; ok {
			correctSelected++
		} else {
			incorrectSelected++
		}
	}

	awarded := q.Marks * float64(correctSelected-incorrectSelected) / float64(len(correct))
	if awarded < 0 {
		awarded = 0
	}
	exact := correctSelected == len(correct) && incorrectSelected == 0
	return Verdict{IsCorrect: exact, MarksAwarded: awarded}
}

func evaluateNumerical(q *model.Question, raw json.RawMessage) Verdict {
	answered, ok := parseNumber(raw)
	if !ok {
		return skipped()
	}
	correct, ok := parseNumber(json.RawMessage(q.CorrectAnswer))
	if !ok {
		return skipped()
	}
	if math.Abs(answered-correct) <= q.NumericTolerance {
		return correctVerdict(q)
	}
	return incorrect(q)
}

func correctVerdict(q *model.Question) Verdict {
	return Verdict{IsCorrect: true, MarksAwarded: q.Marks}
}

func incorrect(q *model.Question) Verdict {
	return Verdict{MarksAwarded: -q.NegativeMarks}
}

func skipped() Verdict {
	return Verdict{IsSkipped: true}
}

// parseSingleSelection accepts a JSON string or a single-element string
// array. Empty and malformed payloads read as "no selection".
func parseSingleSelection(raw json.RawMessage) (string, bool) {
	if isEmptyJSON(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 {
		s := strings.TrimSpace(arr[0])
		return s, s != ""
	}
	return "", false
}

// parseMultiSelection accepts a JSON array of option id strings.
func parseMultiSelection(raw json.RawMessage) ([]string, bool) {
	if isEmptyJSON(raw) {
		return nil, false
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, s := range arr {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// parseBoolean accepts a JSON bool or the strings "true"/"false".
func parseBoolean(raw json.RawMessage) (bool, bool) {
	if isEmptyJSON(raw) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// parseNumber accepts a JSON number or a numeric string. Comparison is
// always numeric so "42.0" and 42 grade identically.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if isEmptyJSON(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == `""` || trimmed == "[]" || trimmed == "{}"
}

func optionExists(q *model.Question, optionID string) bool {
	var options []model.Option
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return false
	}
	for _, opt := range options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
