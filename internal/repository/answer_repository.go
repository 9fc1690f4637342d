package repository

import (
	"context"

	"github.com/lshigami/Margays/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerRepository persists per-question answer records. Writes are upserts
// keyed on (attempt_id, question_id): saving the same question twice replaces
// the earlier answer instead of appending, so retries are harmless.
type AnswerRepository interface {
	UpsertBatch(ctx context.Context, records []model.AnswerRecord) error
	FindByAttemptID(ctx context.Context, attemptID uint) ([]model.AnswerRecord, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) UpsertBatch(ctx context.Context, records []model.AnswerRecord) error {
	if len(records) == 0 {
		return nil
	}
	return upsertAnswerRecords(r.db.WithContext(ctx), records)
}

func (r *answerRepository) FindByAttemptID(ctx context.Context, attemptID uint) ([]model.AnswerRecord, error) {
	var records []model.AnswerRecord
	err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&records).Error
	return records, err
}

// upsertAnswerRecords is shared with the finalize transaction in the attempt
// repository so both paths keep identical conflict semantics.
func upsertAnswerRecords(db *gorm.DB, records []model.AnswerRecord) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"raw_answer", "is_skipped", "is_correct", "marks_awarded",
			"time_taken_seconds", "is_flagged_for_review", "updated_at",
		}),
	}).Create(&records).Error
}
