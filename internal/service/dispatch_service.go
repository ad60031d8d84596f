package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/verse-dispatch/internal/content"
	"github.com/kursadbilgin/verse-dispatch/internal/dispatch"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/observability"
	"github.com/kursadbilgin/verse-dispatch/internal/provider"
	"github.com/kursadbilgin/verse-dispatch/internal/ratelimit"
	"github.com/kursadbilgin/verse-dispatch/internal/render"
	"github.com/kursadbilgin/verse-dispatch/internal/repository"
	"go.uber.org/zap"
)

// DispatchService runs the full pipeline: fetch one verse, persist it as
// an audit record, resolve eligibility over the current subscriber
// snapshot, fan the sends out in batches, and report the outcome.
type DispatchService struct {
	verses      repository.VerseRepository
	subscribers repository.SubscriberRepository
	content     content.Provider

	emailRenderer    *render.EmailRenderer
	whatsappRenderer *render.WhatsAppRenderer
	emailSender      provider.EmailSender
	chatSender       provider.ChatSender

	dispatcher *dispatch.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// DispatchServiceParams carries the collaborators of a DispatchService.
type DispatchServiceParams struct {
	Verses      repository.VerseRepository
	Subscribers repository.SubscriberRepository
	Content     content.Provider

	EmailRenderer    *render.EmailRenderer
	WhatsAppRenderer *render.WhatsAppRenderer
	EmailSender      provider.EmailSender
	ChatSender       provider.ChatSender

	BatchSize   int
	SendTimeout time.Duration
	RateLimiter ratelimit.RateLimiter
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

func NewDispatchService(params DispatchServiceParams) (*DispatchService, error) {
	if params.Verses == nil {
		return nil, fmt.Errorf("verse repository is required")
	}
	if params.Subscribers == nil {
		return nil, fmt.Errorf("subscriber repository is required")
	}
	if params.Content == nil {
		return nil, fmt.Errorf("content provider is required")
	}
	if params.EmailRenderer == nil || params.EmailSender == nil {
		return nil, fmt.Errorf("email renderer and sender are required")
	}
	if params.WhatsAppRenderer == nil || params.ChatSender == nil {
		return nil, fmt.Errorf("whatsapp renderer and sender are required")
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}

	s := &DispatchService{
		verses:           params.Verses,
		subscribers:      params.Subscribers,
		content:          params.Content,
		emailRenderer:    params.EmailRenderer,
		whatsappRenderer: params.WhatsAppRenderer,
		emailSender:      params.EmailSender,
		chatSender:       params.ChatSender,
		metrics:          params.Metrics,
		logger:           params.Logger,
		now:              time.Now,
		newID:            uuid.NewString,
	}

	opts := []dispatch.Option{
		dispatch.WithLogger(params.Logger),
		dispatch.WithBatchSize(params.BatchSize),
		dispatch.WithSendTimeout(params.SendTimeout),
	}
	if params.RateLimiter != nil {
		opts = append(opts, dispatch.WithRateLimiter(params.RateLimiter))
	}

	dispatcher, err := dispatch.NewDispatcher(map[domain.Channel]dispatch.SendFunc{
		domain.ChannelEmail:    s.sendEmail,
		domain.ChannelWhatsApp: s.sendWhatsApp,
	}, opts...)
	if err != nil {
		return nil, err
	}
	s.dispatcher = dispatcher

	return s, nil
}

// Run executes one dispatch run over every registered subscriber.
// A content fetch failure is fatal to the run: no content, no dispatch.
func (s *DispatchService) Run(ctx context.Context) (domain.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	runID := s.newID()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.WithContextLogger(s.logger, ctx)

	subscribers, err := s.subscribers.ListAll(ctx)
	if err != nil {
		s.metrics.IncDispatchRun("failed")
		return domain.Report{RunID: runID}, fmt.Errorf("list subscribers: %w", err)
	}

	plan := dispatch.BuildPlan(subscriberPointers(subscribers))

	verse, err := s.fetchAndRecordVerse(ctx, logger)
	if err != nil {
		s.metrics.IncDispatchRun("failed")
		return domain.Report{RunID: runID}, err
	}

	return s.execute(ctx, logger, runID, verse, plan)
}

// RunForSubscriber delivers the current verse to one subscriber over all
// of their eligible channels.
func (s *DispatchService) RunForSubscriber(ctx context.Context, subscriberID string) (domain.Report, error) {
	return s.runForSubscriber(ctx, subscriberID, nil)
}

// RunForSubscriberChannel delivers over exactly one channel. The
// subscriber must be eligible on that channel.
func (s *DispatchService) RunForSubscriberChannel(ctx context.Context, subscriberID string, channel domain.Channel) (domain.Report, error) {
	if !channel.IsValid() {
		return domain.Report{}, fmt.Errorf("%w: unknown channel %q", domain.ErrValidation, channel)
	}
	return s.runForSubscriber(ctx, subscriberID, &channel)
}

// RunDirect delivers the current verse to a raw address over one channel
// without touching the registry. The recipient is validated but never
// stored.
func (s *DispatchService) RunDirect(ctx context.Context, channel domain.Channel, address string) (domain.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	recipient := &domain.Subscriber{
		ID:         "direct-" + s.newID(),
		Subscribed: true,
	}
	switch channel {
	case domain.ChannelEmail:
		email := domain.NormalizeEmail(address)
		if err := domain.ValidateEmail(email); err != nil {
			return domain.Report{}, err
		}
		recipient.Email = email
		recipient.SendEmail = true
	case domain.ChannelWhatsApp:
		phone, err := domain.NormalizePhone(address)
		if err != nil {
			return domain.Report{}, err
		}
		if phone == "" {
			return domain.Report{}, fmt.Errorf("%w: phone is required", domain.ErrValidation)
		}
		recipient.Phone = phone
		recipient.SendWhatsApp = true
	default:
		return domain.Report{}, fmt.Errorf("%w: unknown channel %q", domain.ErrValidation, channel)
	}

	runID := s.newID()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.WithContextLogger(s.logger, ctx)

	plan := dispatch.BuildPlan([]*domain.Subscriber{recipient})

	verse, err := s.fetchAndRecordVerse(ctx, logger)
	if err != nil {
		return domain.Report{RunID: runID}, err
	}

	return s.execute(ctx, logger, runID, verse, plan)
}

func (s *DispatchService) runForSubscriber(ctx context.Context, subscriberID string, only *domain.Channel) (domain.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	runID := s.newID()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.WithContextLogger(s.logger, ctx)

	subscriber, err := s.subscribers.GetByID(ctx, subscriberID)
	if err != nil {
		return domain.Report{RunID: runID}, err
	}

	plan := dispatch.BuildPlan([]*domain.Subscriber{subscriber})
	if only != nil {
		plan, err = restrictPlan(plan, *only)
		if err != nil {
			return domain.Report{RunID: runID}, err
		}
	}

	verse, err := s.fetchAndRecordVerse(ctx, logger)
	if err != nil {
		return domain.Report{RunID: runID}, err
	}

	return s.execute(ctx, logger, runID, verse, plan)
}

func (s *DispatchService) execute(ctx context.Context, logger *zap.Logger, runID string, verse *domain.Verse, plan dispatch.Plan) (domain.Report, error) {
	start := s.now()
	report, err := s.dispatcher.Run(ctx, verse, plan)
	report.RunID = runID
	s.metrics.ObserveDispatchRunDuration(s.now().Sub(start))

	if err != nil {
		s.metrics.IncDispatchRun("interrupted")
		return report, err
	}

	result := "completed"
	if report.Failed > 0 {
		result = "partial"
	}
	s.metrics.IncDispatchRun(result)
	s.metrics.AddSubscribersReached(report.Succeeded)

	logger.Info("dispatch run finished",
		zap.String("run_id", runID),
		zap.String("verse_id", report.VerseID),
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// fetchAndRecordVerse pulls the content item and persists it for audit.
// The run is shared-content: one verse per run, read-only across sends.
// A failed audit write is logged and tolerated; a failed fetch is fatal.
func (s *DispatchService) fetchAndRecordVerse(ctx context.Context, logger *zap.Logger) (*domain.Verse, error) {
	verse, err := s.content.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	verse.ID = s.newID()
	verse.CreatedAt = s.now().UTC()
	if err := s.verses.Create(ctx, verse); err != nil {
		logger.Warn("failed to record verse",
			zap.String("verse_id", verse.ID),
			zap.Error(err),
		)
	}
	return verse, nil
}

func (s *DispatchService) sendEmail(ctx context.Context, verse *domain.Verse, subscriber *domain.Subscriber) error {
	message, err := s.emailRenderer.Render(verse, subscriber)
	if err != nil {
		s.metrics.IncSendFailed(domain.ChannelEmail.String(), "render_error")
		return err
	}
	return s.instrumentedSend(domain.ChannelEmail, func() error {
		return s.emailSender.Send(ctx, *message)
	})
}

func (s *DispatchService) sendWhatsApp(ctx context.Context, verse *domain.Verse, subscriber *domain.Subscriber) error {
	message, err := s.whatsappRenderer.Render(verse, subscriber)
	if err != nil {
		s.metrics.IncSendFailed(domain.ChannelWhatsApp.String(), "render_error")
		return err
	}
	return s.instrumentedSend(domain.ChannelWhatsApp, func() error {
		return s.chatSender.Send(ctx, *message)
	})
}

func (s *DispatchService) instrumentedSend(channel domain.Channel, send func() error) error {
	start := s.now()
	err := send()
	s.metrics.ObserveSendDuration(channel.String(), s.now().Sub(start))

	if err != nil {
		reason := "permanent_error"
		if provider.IsTransient(err) {
			reason = "transient_error"
		}
		s.metrics.IncSendFailed(channel.String(), reason)
		return err
	}

	s.metrics.IncSendSucceeded(channel.String())
	return nil
}

func restrictPlan(plan dispatch.Plan, channel domain.Channel) (dispatch.Plan, error) {
	if len(plan.Assignments) == 0 {
		return dispatch.Plan{}, fmt.Errorf("%w: subscriber is not eligible for any channel", domain.ErrValidation)
	}

	assignment := plan.Assignments[0]
	for _, eligible := range assignment.Channels {
		if eligible == channel {
			assignment.Channels = []domain.Channel{channel}
			return dispatch.Plan{Assignments: []dispatch.Assignment{assignment}}, nil
		}
	}
	return dispatch.Plan{}, fmt.Errorf("%w: subscriber is not eligible for channel %s", domain.ErrValidation, channel)
}

func subscriberPointers(subscribers []domain.Subscriber) []*domain.Subscriber {
	pointers := make([]*domain.Subscriber, len(subscribers))
	for i := range subscribers {
		pointers[i] = &subscribers[i]
	}
	return pointers
}
