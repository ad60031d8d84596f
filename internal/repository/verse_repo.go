package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"gorm.io/gorm"
)

type VerseRepository interface {
	Create(ctx context.Context, v *domain.Verse) error
	GetByID(ctx context.Context, id string) (*domain.Verse, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Verse, error)
}

type GormVerseRepo struct {
	db *gorm.DB
}

func NewGormVerseRepo(db *gorm.DB) *GormVerseRepo {
	return &GormVerseRepo{db: db}
}

func (r *GormVerseRepo) Create(ctx context.Context, v *domain.Verse) error {
	model := verseModelFromDomain(v)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if v != nil {
		*v = *verseModelToDomain(model)
	}
	return nil
}

func (r *GormVerseRepo) GetByID(ctx context.Context, id string) (*domain.Verse, error) {
	var model VerseModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return verseModelToDomain(&model), nil
}

func (r *GormVerseRepo) ListRecent(ctx context.Context, limit int) ([]domain.Verse, error) {
	if limit < 1 {
		limit = 50
	}

	var models []VerseModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	verses := make([]domain.Verse, 0, len(models))
	for i := range models {
		verses = append(verses, *verseModelToDomain(&models[i]))
	}
	return verses, nil
}
