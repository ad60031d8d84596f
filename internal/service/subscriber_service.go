package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/repository"
	"go.uber.org/zap"
)

// SubscriberService owns the registry invariants: one live record per
// email and per phone, normalized contact addresses, and the two
// acquisition modes (hard create-only versus merge-on-resubscribe).
type SubscriberService struct {
	subscribers repository.SubscriberRepository
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// UpdateSubscriberParams carries a partial update; nil fields are left
// untouched.
type UpdateSubscriberParams struct {
	Email        *string
	Phone        *string
	Name         *string
	SendEmail    *bool
	SendWhatsApp *bool
	Subscribed   *bool
}

func NewSubscriberService(subscribers repository.SubscriberRepository, logger *zap.Logger) (*SubscriberService, error) {
	if subscribers == nil {
		return nil, fmt.Errorf("subscriber repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubscriberService{
		subscribers: subscribers,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// Create registers a new subscriber and rejects any collision on email or
// phone with ErrAlreadyExists. This is the hard create-only path.
func (s *SubscriberService) Create(ctx context.Context, subscriber *domain.Subscriber) (*domain.Subscriber, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.prepareForCreate(subscriber); err != nil {
		return nil, err
	}

	if err := s.subscribers.Create(ctx, subscriber); err != nil {
		return nil, err
	}

	s.logger.Info("subscriber created",
		zap.String("subscriber_id", subscriber.ID),
	)
	return subscriber, nil
}

// CreateOrMerge registers a subscriber, or, when a record with the same
// email (or phone) already exists, merges into it: name and contact
// details are refreshed and the subscription is reactivated. Returns
// whether a new record was created.
func (s *SubscriberService) CreateOrMerge(ctx context.Context, subscriber *domain.Subscriber) (*domain.Subscriber, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.prepareForCreate(subscriber); err != nil {
		return nil, false, err
	}

	existing, err := s.findByContact(ctx, subscriber.Email, subscriber.Phone)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	if existing == nil {
		if err := s.subscribers.Create(ctx, subscriber); err != nil {
			// Lost the read-check-write race to a concurrent create;
			// resolve by merging into whoever won.
			if !errors.Is(err, domain.ErrAlreadyExists) {
				return nil, false, err
			}
			existing, err = s.findByContact(ctx, subscriber.Email, subscriber.Phone)
			if err != nil {
				return nil, false, err
			}
		} else {
			s.logger.Info("subscriber created",
				zap.String("subscriber_id", subscriber.ID),
			)
			return subscriber, true, nil
		}
	}

	merged := s.merge(existing, subscriber)
	if err := s.subscribers.Update(ctx, merged); err != nil {
		return nil, false, err
	}

	s.logger.Info("subscriber merged",
		zap.String("subscriber_id", merged.ID),
	)
	return merged, false, nil
}

func (s *SubscriberService) Get(ctx context.Context, id string) (*domain.Subscriber, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: subscriber id is required", domain.ErrValidation)
	}
	return s.subscribers.GetByID(ctx, id)
}

func (s *SubscriberService) List(ctx context.Context) ([]domain.Subscriber, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscribers.ListAll(ctx)
}

// Update applies a partial update; the merged record must still satisfy
// every registry invariant.
func (s *SubscriberService) Update(ctx context.Context, id string, params UpdateSubscriberParams) (*domain.Subscriber, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: subscriber id is required", domain.ErrValidation)
	}

	subscriber, err := s.subscribers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Email != nil {
		subscriber.Email = domain.NormalizeEmail(*params.Email)
	}
	if params.Phone != nil {
		phone, err := domain.NormalizePhone(*params.Phone)
		if err != nil {
			return nil, err
		}
		subscriber.Phone = phone
	}
	if params.Name != nil {
		subscriber.Name = strings.TrimSpace(*params.Name)
	}
	if params.SendEmail != nil {
		subscriber.SendEmail = *params.SendEmail
	}
	if params.SendWhatsApp != nil {
		subscriber.SendWhatsApp = *params.SendWhatsApp
	}
	if params.Subscribed != nil {
		subscriber.Subscribed = *params.Subscribed
	}

	if err := subscriber.Validate(); err != nil {
		return nil, err
	}

	subscriber.UpdatedAt = s.now().UTC()
	if err := s.subscribers.Update(ctx, subscriber); err != nil {
		return nil, err
	}
	return subscriber, nil
}

// Delete removes a subscriber. Removing an unknown id is not an error.
func (s *SubscriberService) Delete(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: subscriber id is required", domain.ErrValidation)
	}
	return s.subscribers.Delete(ctx, id)
}

// Unsubscribe destructively removes the record, mirroring the behavior of
// the public unsubscribe link. Idempotent.
func (s *SubscriberService) Unsubscribe(ctx context.Context, id string) error {
	if err := s.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("subscriber unsubscribed",
		zap.String("subscriber_id", id),
	)
	return nil
}

func (s *SubscriberService) prepareForCreate(subscriber *domain.Subscriber) error {
	if subscriber == nil {
		return fmt.Errorf("%w: subscriber is required", domain.ErrValidation)
	}

	subscriber.Email = domain.NormalizeEmail(subscriber.Email)
	phone, err := domain.NormalizePhone(subscriber.Phone)
	if err != nil {
		return err
	}
	subscriber.Phone = phone
	subscriber.Name = strings.TrimSpace(subscriber.Name)

	// Default opt-in follows address presence unless the caller chose.
	if !subscriber.SendEmail && !subscriber.SendWhatsApp {
		subscriber.SendEmail = subscriber.Email != ""
		subscriber.SendWhatsApp = subscriber.Phone != ""
	}
	subscriber.Subscribed = true

	if err := subscriber.Validate(); err != nil {
		return err
	}

	if subscriber.ID == "" {
		subscriber.ID = s.newID()
	}
	now := s.now().UTC()
	subscriber.CreatedAt = now
	subscriber.UpdatedAt = now
	return nil
}

func (s *SubscriberService) findByContact(ctx context.Context, email, phone string) (*domain.Subscriber, error) {
	if email != "" {
		existing, err := s.subscribers.GetByEmail(ctx, email)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if phone != "" {
		return s.subscribers.GetByPhone(ctx, phone)
	}
	return nil, domain.ErrNotFound
}

// merge refreshes an existing record from a resubscription attempt. The
// existing identity and creation time survive; contact details, name and
// opt-ins are taken from the new registration, and the subscription is
// reactivated.
func (s *SubscriberService) merge(existing, incoming *domain.Subscriber) *domain.Subscriber {
	merged := *existing
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Email != "" {
		merged.Email = incoming.Email
	}
	if incoming.Phone != "" {
		merged.Phone = incoming.Phone
	}
	merged.SendEmail = merged.SendEmail || incoming.SendEmail
	merged.SendWhatsApp = merged.SendWhatsApp || incoming.SendWhatsApp
	merged.Subscribed = true
	merged.UpdatedAt = s.now().UTC()
	return &merged
}
