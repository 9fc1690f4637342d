package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lshigami/Margays/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStateConflict is returned when a finalize lost the compare-and-swap on
// the attempt state: another caller (a retry, a double-click, or the deadline
// sweeper) already moved the attempt into a terminal state.
var ErrStateConflict = errors.New("attempt state changed concurrently")

// AttemptStanding carries one recomputed rank/percentile pair.
type AttemptStanding struct {
	AttemptID  uint
	Rank       int
	Percentile float64
}

type AttemptRepository interface {
	// CreateIfAbsent inserts the attempt unless an IN_PROGRESS one already
	// exists for the same (user, exam) pair. The partial unique index makes
	// this a single atomic conditional insert; created reports whether this
	// call won the race.
	CreateIfAbsent(ctx context.Context, attempt *model.Attempt) (created bool, err error)
	FindByID(ctx context.Context, id uint) (*model.Attempt, error)
	FindByIDWithAnswers(ctx context.Context, id uint) (*model.Attempt, error)
	FindInProgress(ctx context.Context, userID, examID uint) (*model.Attempt, error)
	CountTerminal(ctx context.Context, userID, examID uint) (int64, error)
	// FinalizeSubmission upserts the evaluated answer records and performs the
	// IN_PROGRESS -> terminal transition with all derived fields, atomically in
	// one transaction. Returns ErrStateConflict when the CAS loses.
	FinalizeSubmission(ctx context.Context, attempt *model.Attempt, records []model.AnswerRecord) error
	FindExpiredInProgress(ctx context.Context, now time.Time, limit int) ([]model.Attempt, error)
	FindTerminalByExam(ctx context.Context, examID uint) ([]model.Attempt, error)
	UpdateStandings(ctx context.Context, standings []AttemptStanding) error
	FindAllByExamAndUser(ctx context.Context, examID, userID uint) ([]model.Attempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) CreateIfAbsent(ctx context.Context, attempt *model.Attempt) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "exam_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Name: "state"}, Value: string(model.AttemptInProgress)},
		}},
		DoNothing: true,
	}).Create(attempt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *attemptRepository) FindByID(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithAnswers(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.WithContext(ctx).
		Preload("Answers").
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindInProgress(ctx context.Context, userID, examID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ? AND state = ?", userID, examID, model.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) CountTerminal(ctx context.Context, userID, examID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Attempt{}).
		Where("user_id = ? AND exam_id = ? AND state IN ?", userID, examID,
			[]model.AttemptState{model.AttemptSubmitted, model.AttemptExpired, model.AttemptAbandoned}).
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) FinalizeSubmission(ctx context.Context, attempt *model.Attempt, records []model.AnswerRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			if err := upsertAnswerRecords(tx, records); err != nil {
				return err
			}
		}

		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND state = ?", attempt.ID, model.AttemptInProgress).
			Updates(map[string]interface{}{
				"state":                attempt.State,
				"submitted_at":         attempt.SubmittedAt,
				"total_marks_obtained": attempt.TotalMarksObtained,
				"total_marks_possible": attempt.TotalMarksPossible,
				"percentage":           attempt.Percentage,
				"is_passed":            attempt.IsPassed,
				"correct_count":        attempt.CorrectCount,
				"incorrect_count":      attempt.IncorrectCount,
				"skipped_count":        attempt.SkippedCount,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateConflict
		}
		return nil
	})
}

func (r *attemptRepository) FindExpiredInProgress(ctx context.Context, now time.Time, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("state = ? AND deadline_at < ?", model.AttemptInProgress, now).
		Order("deadline_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindTerminalByExam(ctx context.Context, examID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("exam_id = ? AND state IN ?", examID,
			[]model.AttemptState{model.AttemptSubmitted, model.AttemptExpired}).
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) UpdateStandings(ctx context.Context, standings []AttemptStanding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range standings {
			err := tx.Model(&model.Attempt{}).
				Where("id = ?", s.AttemptID).
				Updates(map[string]interface{}{"rank": s.Rank, "percentile": s.Percentile}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *attemptRepository) FindAllByExamAndUser(ctx context.Context, examID, userID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}
