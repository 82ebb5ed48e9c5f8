package repo

import (
	"PassKeeper/internal/model"
	"context"

	"gorm.io/gorm"
)

// QuestionRepository — справочник контрольных вопросов.
type QuestionRepository interface {
	List(ctx context.Context) ([]model.SecurityQuestion, error)
	GetByID(ctx context.Context, id int64) (*model.SecurityQuestion, error)
	// Seed добавляет вопросы, только если справочник пуст.
	Seed(ctx context.Context, texts []string) error
}

type questionRepo struct {
	db *gorm.DB
}

// NewQuestionRepository создаёт реализацию репозитория вопросов.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) List(ctx context.Context) ([]model.SecurityQuestion, error) {
	var qs []model.SecurityQuestion
	if err := r.db.WithContext(ctx).Order("id").Find(&qs).Error; err != nil {
		return nil, err
	}
	return qs, nil
}

func (r *questionRepo) GetByID(ctx context.Context, id int64) (*model.SecurityQuestion, error) {
	var q model.SecurityQuestion
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) Seed(ctx context.Context, texts []string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.SecurityQuestion{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 || len(texts) == 0 {
		return nil
	}
	qs := make([]model.SecurityQuestion, 0, len(texts))
	for _, t := range texts {
		qs = append(qs, model.SecurityQuestion{Text: t})
	}
	return r.db.WithContext(ctx).Create(&qs).Error
}
