package repository

import (
	"context"

	"github.com/lshigami/Margays/internal/model"
	"gorm.io/gorm"
)

// ExamRepository is the read-only view onto the catalog store. Exam and
// question definitions are authored elsewhere; the engine never writes them.
type ExamRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Exam, error)
	FindByIDWithQuestions(ctx context.Context, id uint) (*model.Exam, error)
}

type examRepository struct {
	db *gorm.DB
}

func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) FindByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepository) FindByIDWithQuestions(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_in_exam ASC")
		}).
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}
