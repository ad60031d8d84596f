package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"gorm.io/gorm"
)

// listPageSize bounds one page of the internal full-enumeration scan.
const listPageSize = 500

type SubscriberRepository interface {
	Create(ctx context.Context, s *domain.Subscriber) error
	GetByID(ctx context.Context, id string) (*domain.Subscriber, error)
	GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Subscriber, error)
	Update(ctx context.Context, s *domain.Subscriber) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Subscriber, error)
}

type GormSubscriberRepo struct {
	db *gorm.DB
}

func NewGormSubscriberRepo(db *gorm.DB) *GormSubscriberRepo {
	return &GormSubscriberRepo{db: db}
}

// Create inserts a new subscriber. The partial unique indexes on email and
// phone are the atomic arbiter for the read-check-write race: a lost race
// surfaces here as a duplicate key error and maps to ErrAlreadyExists, the
// same answer a pre-check would have returned.
func (r *GormSubscriberRepo) Create(ctx context.Context, s *domain.Subscriber) error {
	model := subscriberModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	if s != nil {
		*s = *subscriberModelToDomain(model)
	}
	return nil
}

func (r *GormSubscriberRepo) GetByID(ctx context.Context, id string) (*domain.Subscriber, error) {
	var model SubscriberModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriberModelToDomain(&model), nil
}

func (r *GormSubscriberRepo) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	var model SubscriberModel
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriberModelToDomain(&model), nil
}

func (r *GormSubscriberRepo) GetByPhone(ctx context.Context, phone string) (*domain.Subscriber, error) {
	var model SubscriberModel
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriberModelToDomain(&model), nil
}

// Update writes the full mutable field set of the record. A collision on
// email or phone with another record maps to ErrConflict.
func (r *GormSubscriberRepo) Update(ctx context.Context, s *domain.Subscriber) error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return domain.ErrNotFound
	}

	model := subscriberModelFromDomain(s)
	result := r.db.WithContext(ctx).
		Model(&SubscriberModel{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{
			"email":         model.Email,
			"phone":         model.Phone,
			"name":          model.Name,
			"send_email":    model.SendEmail,
			"send_whatsapp": model.SendWhatsApp,
			"subscribed":    model.Subscribed,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domain.ErrConflict
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete is idempotent; removing an absent record is not an error.
func (r *GormSubscriberRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Delete(&SubscriberModel{}, "id = ?", id).Error
}

// ListAll enumerates every subscriber, following keyset pages internally
// until the store is exhausted. Callers see one flat slice.
func (r *GormSubscriberRepo) ListAll(ctx context.Context) ([]domain.Subscriber, error) {
	subscribers := make([]domain.Subscriber, 0, listPageSize)
	lastID := ""

	for {
		var models []SubscriberModel
		query := r.db.WithContext(ctx).
			Order("id ASC").
			Limit(listPageSize)
		if lastID != "" {
			query = query.Where("id > ?", lastID)
		}
		if err := query.Find(&models).Error; err != nil {
			return nil, err
		}

		for i := range models {
			subscribers = append(subscribers, *subscriberModelToDomain(&models[i]))
		}

		if len(models) < listPageSize {
			return subscribers, nil
		}
		lastID = models[len(models)-1].ID
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
