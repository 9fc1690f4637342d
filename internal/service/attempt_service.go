package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lshigami/Margays/internal/auth"
	"github.com/lshigami/Margays/internal/dto"
	"github.com/lshigami/Margays/internal/model"
	"github.com/lshigami/Margays/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultRankTimeout = 30 * time.Second

// AttemptService owns the attempt lifecycle: IN_PROGRESS -> SUBMITTED on an
// explicit submit, IN_PROGRESS -> EXPIRED when the deadline passes first.
// Terminal states never transition again. Starting is an atomic conditional
// insert so concurrent starts resolve to a single attempt; finalizing is a
// compare-and-swap on state so concurrent submits (or a submit racing the
// deadline sweeper) resolve to a single winner, with every loser returning
// the winner's stored result.
type AttemptService interface {
	StartAttempt(ctx context.Context, principal auth.Principal, examID uint) (*dto.AttemptHandleDTO, error)
	SaveAnswers(ctx context.Context, principal auth.Principal, attemptID uint, req dto.SaveAnswersRequest) (*dto.SaveAnswersResponse, error)
	SubmitAttempt(ctx context.Context, principal auth.Principal, attemptID uint, req dto.SubmitAttemptRequest) (*dto.ResultDTO, error)
	GetAttemptStatus(ctx context.Context, principal auth.Principal, attemptID uint) (*dto.AttemptStatusDTO, error)
	GetAttemptResult(ctx context.Context, principal auth.Principal, attemptID uint) (*dto.ResultDTO, error)
	ListUserAttempts(ctx context.Context, principal auth.Principal, examID uint) ([]dto.AttemptSummaryDTO, error)

	// ExpireOverdue finalizes IN_PROGRESS attempts whose deadline has passed,
	// scoring whatever answers were durably recorded. Used by the sweeper.
	ExpireOverdue(ctx context.Context, batchSize int) (int, error)
}

type attemptService struct {
	examRepo    repository.ExamRepository
	attemptRepo repository.AttemptRepository
	answerRepo  repository.AnswerRepository
	evaluator   EvaluatorService
	scoring     ScoringService
	ranking     RankingService
	result      ResultService
	now         func() time.Time
}

func NewAttemptService(
	examRepo repository.ExamRepository,
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	evaluator EvaluatorService,
	scoring ScoringService,
	ranking RankingService,
	result ResultService,
) AttemptService {
	return &attemptService{
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
		evaluator:   evaluator,
		scoring:     scoring,
		ranking:     ranking,
		result:      result,
		now:         time.Now,
	}
}

func (s *attemptService) StartAttempt(ctx context.Context, principal auth.Principal, examID uint) (*dto.AttemptHandleDTO, error) {
	now := s.now()

	exam, err := s.examRepo.FindByIDWithQuestions(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotAvailable
		}
		log.Error().Err(err).Uint("examID", examID).Msg("StartAttempt: failed to load exam")
		return nil, err
	}
	if !examAvailable(exam, now) {
		return nil, ErrExamNotAvailable
	}

	// Idempotent resume: an open attempt is returned as-is, never duplicated.
	existing, err := s.attemptRepo.FindInProgress(ctx, principal.UserID, examID)
	switch {
	case err == nil:
		if now.After(existing.DeadlineAt) {
			// The open attempt is overdue; finalize it before deciding
			// whether a new one may start.
			if _, _, expErr := s.expireAttempt(ctx, existing, exam); expErr != nil && !errors.Is(expErr, repository.ErrStateConflict) {
				return nil, expErr
			}
		} else {
			return buildAttemptHandle(existing, exam, true), nil
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	terminal, err := s.attemptRepo.CountTerminal(ctx, principal.UserID, examID)
	if err != nil {
		return nil, err
	}
	maxAttempts := exam.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if terminal >= int64(maxAttempts) {
		return nil, ErrAttemptLimitReached
	}

	attempt := &model.Attempt{
		ExamID:     examID,
		UserID:     principal.UserID,
		State:      model.AttemptInProgress,
		StartedAt:  now,
		DeadlineAt: now.Add(time.Duration(exam.DurationMinutes) * time.Minute),
	}
	created, err := s.attemptRepo.CreateIfAbsent(ctx, attempt)
	if err != nil {
		log.Error().Err(err).Uint("examID", examID).Uint("userID", principal.UserID).Msg("StartAttempt: conditional insert failed")
		return nil, err
	}
	if !created {
		// Lost the race against a concurrent start; hand back the winner.
		winner, err := s.attemptRepo.FindInProgress(ctx, principal.UserID, examID)
		if err != nil {
			return nil, err
		}
		return buildAttemptHandle(winner, exam, true), nil
	}

	log.Info().Uint("attemptID", attempt.ID).Uint("examID", examID).Uint("userID", principal.UserID).
		Time("deadline", attempt.DeadlineAt).Msg("Attempt started")
	return buildAttemptHandle(attempt, exam, false), nil
}

func (s *attemptService) SaveAnswers(ctx context.Context, principal auth.Principal, attemptID uint, req dto.SaveAnswersRequest) (*dto.SaveAnswersResponse, error) {
	attempt, err := s.loadOwnedAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.State.Terminal() {
		return nil, ErrAttemptAlreadyFinalized
	}
	if s.now().After(attempt.DeadlineAt) {
		return nil, ErrDeadlinePassed
	}

	exam, err := s.examRepo.FindByIDWithQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	records := buildAnswerRecords(attempt.ID, exam, req.Answers)
	if err := s.answerRepo.UpsertBatch(ctx, records); err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("SaveAnswers: upsert failed")
		return nil, err
	}

	return &dto.SaveAnswersResponse{
		AttemptID:  attempt.ID,
		SavedCount: len(records),
		DeadlineAt: attempt.DeadlineAt,
	}, nil
}

func (s *attemptService) SubmitAttempt(ctx context.Context, principal auth.Principal, attemptID uint, req dto.SubmitAttemptRequest) (*dto.ResultDTO, error) {
	attempt, err := s.loadOwnedAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}

	exam, err := s.examRepo.FindByIDWithQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	// Retried submits are non-fatal: a terminal attempt returns its stored
	// result unchanged.
	if attempt.State.Terminal() {
		return s.storedResult(ctx, attempt, exam)
	}

	now := s.now()
	if now.After(attempt.DeadlineAt) {
		// Past the deadline only durably recorded answers count; the ones in
		// this request are discarded, not scored.
		log.Info().Uint("attemptID", attemptID).Int("discarded", len(req.Answers)).
			Msg("SubmitAttempt: deadline passed, expiring with recorded answers only")
		return s.resolveFinalize(ctx, attempt, exam, func() (*model.Attempt, []model.AnswerRecord, error) {
			return s.expireAttempt(ctx, attempt, exam)
		})
	}

	return s.resolveFinalize(ctx, attempt, exam, func() (*model.Attempt, []model.AnswerRecord, error) {
		stored, err := s.answerRepo.FindByAttemptID(ctx, attempt.ID)
		if err != nil {
			return nil, nil, err
		}
		records := mergeAnswerRecords(attempt.ID, exam, stored, req.Answers)
		return s.finalize(ctx, attempt, exam, records, model.AttemptSubmitted, now)
	})
}

func (s *attemptService) GetAttemptStatus(ctx context.Context, principal auth.Principal, attemptID uint) (*dto.AttemptStatusDTO, error) {
	attempt, err := s.loadOwnedAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}

	remaining := 0
	if !attempt.State.Terminal() {
		if until := attempt.DeadlineAt.Sub(s.now()); until > 0 {
			remaining = int(until.Seconds())
		}
	}
	return &dto.AttemptStatusDTO{
		AttemptID:            attempt.ID,
		State:                string(attempt.State),
		TimeRemainingSeconds: remaining,
	}, nil
}

func (s *attemptService) GetAttemptResult(ctx context.Context, principal auth.Principal, attemptID uint) (*dto.ResultDTO, error) {
	attempt, err := s.loadOwnedAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.State.Terminal() {
		return nil, ErrResultNotReady
	}

	exam, err := s.examRepo.FindByIDWithQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	return s.storedResult(ctx, attempt, exam)
}

func (s *attemptService) ListUserAttempts(ctx context.Context, principal auth.Principal, examID uint) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindAllByExamAndUser(ctx, examID, principal.UserID)
	if err != nil {
		return nil, err
	}
	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for i := range attempts {
		summaries = append(summaries, s.result.BuildSummary(&attempts[i]))
	}
	return summaries, nil
}

func (s *attemptService) ExpireOverdue(ctx context.Context, batchSize int) (int, error) {
	overdue, err := s.attemptRepo.FindExpiredInProgress(ctx, s.now(), batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	touchedExams := make(map[uint]struct{})
	for i := range overdue {
		attempt := &overdue[i]
		exam, err := s.examRepo.FindByIDWithQuestions(ctx, attempt.ExamID)
		if err != nil {
			log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Sweep: failed to load exam")
			continue
		}
		if _, _, err := s.expireAttempt(ctx, attempt, exam); err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				// A concurrent submit already finalized it; nothing to do.
				continue
			}
			log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Sweep: failed to expire attempt")
			continue
		}
		expired++
		touchedExams[attempt.ExamID] = struct{}{}
	}

	for examID := range touchedExams {
		go s.ranking.RecomputeExam(examID, defaultRankTimeout)
	}
	return expired, nil
}

// expireAttempt finalizes an overdue attempt from its durably recorded
// answers: the self-submit path with zero new answers.
func (s *attemptService) expireAttempt(ctx context.Context, attempt *model.Attempt, exam *model.Exam) (*model.Attempt, []model.AnswerRecord, error) {
	stored, err := s.answerRepo.FindByAttemptID(ctx, attempt.ID)
	if err != nil {
		return nil, nil, err
	}
	return s.finalize(ctx, attempt, exam, stored, model.AttemptExpired, s.now())
}

// finalize evaluates every question, aggregates totals and performs the
// terminal transition. The answer upserts and the state CAS share one
// transaction, so an attempt is never readable as terminal without totals.
func (s *attemptService) finalize(ctx context.Context, attempt *model.Attempt, exam *model.Exam, records []model.AnswerRecord, state model.AttemptState, finalizedAt time.Time) (*model.Attempt, []model.AnswerRecord, error) {
	byQuestion := make(map[uint]*model.AnswerRecord, len(records))
	for i := range records {
		byQuestion[records[i].QuestionID] = &records[i]
	}

	evaluations := make([]Evaluation, 0, len(exam.Questions))
	for i := range exam.Questions {
		q := &exam.Questions[i]
		rec, answered := byQuestion[q.ID]
		if !answered {
			// No record was ever persisted for this question; it still
			// counts as skipped in the totals.
			evaluations = append(evaluations, Evaluation{QuestionID: q.ID, Verdict: skipped()})
			continue
		}
		verdict := s.evaluator.Evaluate(q, json.RawMessage(rec.RawAnswer), exam.PartialMarking)
		rec.IsSkipped = verdict.IsSkipped
		rec.IsCorrect = verdict.IsCorrect
		rec.MarksAwarded = verdict.MarksAwarded
		evaluations = append(evaluations, Evaluation{QuestionID: q.ID, Verdict: verdict})
	}

	totals := s.scoring.Aggregate(evaluations, exam)

	attempt.State = state
	attempt.SubmittedAt = &finalizedAt
	attempt.TotalMarksObtained = &totals.TotalMarksObtained
	attempt.TotalMarksPossible = &totals.TotalMarksPossible
	attempt.Percentage = &totals.Percentage
	attempt.IsPassed = &totals.IsPassed
	attempt.CorrectCount = totals.CorrectCount
	attempt.IncorrectCount = totals.IncorrectCount
	attempt.SkippedCount = totals.SkippedCount

	if err := s.attemptRepo.FinalizeSubmission(ctx, attempt, records); err != nil {
		return nil, nil, err
	}

	log.Info().Uint("attemptID", attempt.ID).Str("state", string(state)).
		Float64("score", totals.TotalMarksObtained).Bool("passed", totals.IsPassed).
		Msg("Attempt finalized")
	return attempt, records, nil
}

// resolveFinalize runs a finalize path and settles races: if the CAS lost,
// the winner's stored result is returned instead of an error. On success the
// ranking recompute is kicked off without blocking the caller.
func (s *attemptService) resolveFinalize(ctx context.Context, attempt *model.Attempt, exam *model.Exam, fn func() (*model.Attempt, []model.AnswerRecord, error)) (*dto.ResultDTO, error) {
	finalized, records, err := fn()
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			log.Info().Uint("attemptID", attempt.ID).Msg("Finalize lost the race, returning stored result")
			stored, loadErr := s.attemptRepo.FindByID(ctx, attempt.ID)
			if loadErr != nil {
				return nil, loadErr
			}
			return s.storedResult(ctx, stored, exam)
		}
		return nil, err
	}

	go s.ranking.RecomputeExam(exam.ID, defaultRankTimeout)
	return s.result.BuildResult(finalized, exam, records, s.now()), nil
}

func (s *attemptService) storedResult(ctx context.Context, attempt *model.Attempt, exam *model.Exam) (*dto.ResultDTO, error) {
	records, err := s.answerRepo.FindByAttemptID(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	return s.result.BuildResult(attempt, exam, records, s.now()), nil
}

func (s *attemptService) loadOwnedAttempt(ctx context.Context, principal auth.Principal, attemptID uint) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != principal.UserID {
		return nil, ErrNotAuthorized
	}
	return attempt, nil
}

func examAvailable(exam *model.Exam, now time.Time) bool {
	if !exam.Published {
		return false
	}
	if exam.StartWindow != nil && now.Before(*exam.StartWindow) {
		return false
	}
	if exam.EndWindow != nil && now.After(*exam.EndWindow) {
		return false
	}
	return true
}

// buildAnswerRecords maps submitted answers onto records, dropping answers
// for questions that are not part of the exam. A bad answer never blocks the
// rest of the batch.
func buildAnswerRecords(attemptID uint, exam *model.Exam, answers []dto.AnswerInputDTO) []model.AnswerRecord {
	questionIDs := make(map[uint]struct{}, len(exam.Questions))
	for _, q := range exam.Questions {
		questionIDs[q.ID] = struct{}{}
	}

	records := make([]model.AnswerRecord, 0, len(answers))
	for _, ans := range answers {
		if _, ok := questionIDs[ans.QuestionID]; !ok {
			log.Warn().Uint("questionID", ans.QuestionID).Uint("examID", exam.ID).
				Msg("Dropping answer for question not in this exam")
			continue
		}
		records = append(records, model.AnswerRecord{
			AttemptID:          attemptID,
			QuestionID:         ans.QuestionID,
			RawAnswer:          datatypes.JSON(ans.RawAnswer),
			TimeTakenSeconds:   ans.TimeTakenSeconds,
			IsFlaggedForReview: ans.IsFlaggedForReview,
		})
	}
	return records
}

// mergeAnswerRecords overlays the final batch on top of previously saved
// records; the batch wins per question (upsert, not append).
func mergeAnswerRecords(attemptID uint, exam *model.Exam, stored []model.AnswerRecord, answers []dto.AnswerInputDTO) []model.AnswerRecord {
	merged := make(map[uint]model.AnswerRecord, len(stored)+len(answers))
	for _, rec := range stored {
		merged[rec.QuestionID] = rec
	}
	for _, rec := range buildAnswerRecords(attemptID, exam, answers) {
		if prev, ok := merged[rec.QuestionID]; ok {
			rec.ID = prev.ID
		}
		merged[rec.QuestionID] = rec
	}

	records := make([]model.AnswerRecord, 0, len(merged))
	for _, q := range exam.Questions {
		if rec, ok := merged[q.ID]; ok {
			records = append(records, rec)
		}
	}
	return records
}

func buildAttemptHandle(attempt *model.Attempt, exam *model.Exam, resumed bool) *dto.AttemptHandleDTO {
	questions := make([]dto.QuestionForAttemptDTO, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		questions = append(questions, sanitizeQuestion(&q))
	}
	return &dto.AttemptHandleDTO{
		AttemptID:  attempt.ID,
		ExamID:     exam.ID,
		State:      string(attempt.State),
		StartedAt:  attempt.StartedAt,
		DeadlineAt: attempt.DeadlineAt,
		Resumed:    resumed,
		Questions:  questions,
	}
}

// sanitizeQuestion strips the answer key before a question leaves the engine
// with a live attempt.
func sanitizeQuestion(q *model.Question) dto.QuestionForAttemptDTO {
	out := dto.QuestionForAttemptDTO{
		ID:               q.ID,
		Type:             string(q.Type),
		Prompt:           q.Prompt,
		Marks:            q.Marks,
		NegativeMarks:    q.NegativeMarks,
		NumericTolerance: q.NumericTolerance,
		OrderInExam:      q.OrderInExam,
	}
	if len(q.Options) > 0 {
		var options []model.Option
		if err := json.Unmarshal(q.Options, &options); err != nil {
			log.Error().Err(err).Uint("questionID", q.ID).Msg("Failed to decode question options")
		}
		for _, opt := range options {
			out.Options = append(out.Options, dto.OptionDTO{ID: opt.ID, Text: opt.Text})
		}
	}
	return out
}
