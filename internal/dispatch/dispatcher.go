package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	defaultBatchSize   = 5
	defaultSendTimeout = 15 * time.Second
)

// SendFunc renders and delivers one verse to one subscriber over a single
// channel. Rendering failures and transport failures are equivalent from
// the dispatcher's point of view.
type SendFunc func(ctx context.Context, verse *domain.Verse, subscriber *domain.Subscriber) error

// Dispatcher executes a plan in fixed-size batches. Sends within a batch
// run concurrently; the next batch starts only after every send in the
// current batch has settled. One failing send never aborts its siblings.
type Dispatcher struct {
	senders     map[domain.Channel]SendFunc
	batchSize   int
	sendTimeout time.Duration
	limiter     ratelimit.RateLimiter
	logger      *zap.Logger
}

type Option func(*Dispatcher)

func WithBatchSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batchSize = size
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func WithRateLimiter(limiter ratelimit.RateLimiter) Option {
	return func(d *Dispatcher) {
		if limiter != nil {
			d.limiter = limiter
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDispatcher(senders map[domain.Channel]SendFunc, opts ...Option) (*Dispatcher, error) {
	if len(senders) == 0 {
		return nil, fmt.Errorf("at least one channel sender is required")
	}
	for channel := range senders {
		if !channel.IsValid() {
			return nil, fmt.Errorf("unknown sender channel %q", channel)
		}
	}

	d := &Dispatcher{
		senders:     senders,
		batchSize:   defaultBatchSize,
		sendTimeout: defaultSendTimeout,
		limiter:     ratelimit.Unlimited{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run executes the plan for one verse and returns the aggregated report.
// If the context is cancelled between batches, the run stops with a
// whole-batch prefix in the report and the context error; an in-flight
// batch is always allowed to settle first.
func (d *Dispatcher) Run(ctx context.Context, verse *domain.Verse, plan Plan) (domain.Report, error) {
	aggregator := NewAggregator("", verseIDOf(verse))
	aggregator.CommitSkipped(plan.Skipped)

	if verse == nil {
		return aggregator.Report(), fmt.Errorf("%w: verse is required", domain.ErrValidation)
	}

	assignments := plan.Assignments
	for start := 0; start < len(assignments); start += d.batchSize {
		if err := ctx.Err(); err != nil {
			return aggregator.Report(), err
		}

		end := start + d.batchSize
		if end > len(assignments) {
			end = len(assignments)
		}
		batch := assignments[start:end]

		outcomes := make([]domain.Outcome, len(batch))
		var wg sync.WaitGroup
		for i, assignment := range batch {
			wg.Add(1)
			go func(slot int, assignment Assignment) {
				defer wg.Done()
				outcomes[slot] = d.sendToSubscriber(ctx, verse, assignment)
			}(i, assignment)
		}
		wg.Wait()

		aggregator.CommitBatch(outcomes)
		d.logger.Debug("batch settled",
			zap.Int("batch_start", start),
			zap.Int("batch_size", len(batch)),
		)
	}

	report := aggregator.Report()
	d.logger.Info("dispatch run settled",
		zap.String("verse_id", report.VerseID),
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// sendToSubscriber issues all of a subscriber's channel sends concurrently
// as one unit. The subscriber succeeds only if every attempted channel
// succeeds; partial failure carries per-channel error detail.
func (d *Dispatcher) sendToSubscriber(ctx context.Context, verse *domain.Verse, assignment Assignment) domain.Outcome {
	outcome := domain.Outcome{
		SubscriberID: assignment.Subscriber.ID,
		Channels:     assignment.Channels,
	}

	errs := make([]error, len(assignment.Channels))
	var wg sync.WaitGroup
	for i, channel := range assignment.Channels {
		wg.Add(1)
		go func(slot int, channel domain.Channel) {
			defer wg.Done()
			errs[slot] = d.sendOne(ctx, channel, verse, assignment.Subscriber)
		}(i, channel)
	}
	wg.Wait()

	outcome.Success = true
	for i, err := range errs {
		if err == nil {
			continue
		}
		outcome.Success = false
		outcome.Errors = append(outcome.Errors, domain.ChannelError{
			Channel: assignment.Channels[i],
			Error:   err.Error(),
		})
		d.logger.Warn("channel send failed",
			zap.String("subscriber_id", assignment.Subscriber.ID),
			zap.String("channel", assignment.Channels[i].String()),
			zap.Error(err),
		)
	}
	return outcome
}

func (d *Dispatcher) sendOne(ctx context.Context, channel domain.Channel, verse *domain.Verse, subscriber *domain.Subscriber) error {
	sender, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("no sender configured for channel %s", channel)
	}

	if err := d.limiter.Wait(ctx, channel); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// A send that never settles must resolve to a failure rather than
	// stall its whole batch.
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	return sender(sendCtx, verse, subscriber)
}

func verseIDOf(verse *domain.Verse) string {
	if verse == nil {
		return ""
	}
	return verse.ID
}
