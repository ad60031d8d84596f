package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/provider"
	"github.com/kursadbilgin/verse-dispatch/internal/render"
	"go.uber.org/zap"
)

type fakeVerseRepo struct {
	mu     sync.Mutex
	stored []domain.Verse

	createErr error
}

func (f *fakeVerseRepo) Create(ctx context.Context, v *domain.Verse) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	f.stored = append(f.stored, *v)
	return nil
}

func (f *fakeVerseRepo) GetByID(ctx context.Context, id string) (*domain.Verse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.stored {
		if f.stored[i].ID == id {
			copied := f.stored[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeVerseRepo) ListRecent(ctx context.Context, limit int) ([]domain.Verse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if limit > len(f.stored) {
		limit = len(f.stored)
	}
	out := make([]domain.Verse, limit)
	copy(out, f.stored[len(f.stored)-limit:])
	return out, nil
}

type fakeContentProvider struct {
	verse *domain.Verse
	err   error
	calls atomic.Int64
}

func (f *fakeContentProvider) Fetch(ctx context.Context) (*domain.Verse, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.verse
	return &copied, nil
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []provider.EmailMessage
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, msg provider.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeChatSender struct {
	mu   sync.Mutex
	sent []provider.ChatMessage
	err  error
}

func (f *fakeChatSender) Send(ctx context.Context, msg provider.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type dispatchFixture struct {
	service     *DispatchService
	subscribers *fakeSubscriberRepo
	verses      *fakeVerseRepo
	content     *fakeContentProvider
	email       *fakeEmailSender
	chat        *fakeChatSender
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	emailRenderer, err := render.NewEmailRenderer("Daily Verse", "https://verses.example.com")
	if err != nil {
		t.Fatalf("NewEmailRenderer() error = %v", err)
	}

	fixture := &dispatchFixture{
		subscribers: newFakeSubscriberRepo(),
		verses:      &fakeVerseRepo{},
		content: &fakeContentProvider{verse: &domain.Verse{
			SurahNumber:      1,
			AyahNumber:       1,
			TextArabic:       "بِسْمِ اللَّهِ",
			TextEnglish:      "In the name of Allah",
			SurahNameEnglish: "Al-Fatihah",
		}},
		email: &fakeEmailSender{},
		chat:  &fakeChatSender{},
	}

	service, err := NewDispatchService(DispatchServiceParams{
		Verses:           fixture.verses,
		Subscribers:      fixture.subscribers,
		Content:          fixture.content,
		EmailRenderer:    emailRenderer,
		WhatsAppRenderer: render.NewWhatsAppRenderer(),
		EmailSender:      fixture.email,
		ChatSender:       fixture.chat,
		BatchSize:        2,
		Logger:           zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewDispatchService() error = %v", err)
	}
	fixture.service = service
	return fixture
}

func (f *dispatchFixture) addSubscriber(t *testing.T, s domain.Subscriber) domain.Subscriber {
	t.Helper()

	f.subscribers.mu.Lock()
	defer f.subscribers.mu.Unlock()
	f.subscribers.byID[s.ID] = s
	return s
}

func TestDispatchServiceRun(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-email", Email: "a@example.com", Name: "A",
		SendEmail: true, Subscribed: true,
	})
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-both", Email: "b@example.com", Phone: "+923001234567", Name: "B",
		SendEmail: true, SendWhatsApp: true, Subscribed: true,
	})
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-off", Email: "c@example.com", Name: "C",
		SendEmail: true, Subscribed: false,
	})

	report, err := fixture.service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.RunID == "" || report.VerseID == "" {
		t.Errorf("report identity missing: %+v", report)
	}
	if report.Attempted != 2 || report.Succeeded != 2 || report.Skipped != 1 {
		t.Errorf("report = attempted %d succeeded %d skipped %d, want 2/2/1",
			report.Attempted, report.Succeeded, report.Skipped)
	}

	if len(fixture.email.sent) != 2 {
		t.Errorf("emails sent = %d, want 2", len(fixture.email.sent))
	}
	if len(fixture.chat.sent) != 1 {
		t.Errorf("chat messages sent = %d, want 1", len(fixture.chat.sent))
	}
	if len(fixture.verses.stored) != 1 {
		t.Errorf("verses recorded = %d, want 1", len(fixture.verses.stored))
	}
	if fixture.content.calls.Load() != 1 {
		t.Errorf("content fetches = %d, want exactly one per run", fixture.content.calls.Load())
	}
}

func TestDispatchServiceRunContentFailureIsFatal(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-email", Email: "a@example.com", Name: "A",
		SendEmail: true, Subscribed: true,
	})
	fixture.content.err = domain.ErrUpstream

	_, err := fixture.service.Run(context.Background())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("Run() error = %v, want ErrUpstream", err)
	}
	if len(fixture.email.sent) != 0 {
		t.Error("no sends may happen without content")
	}
}

func TestDispatchServiceRunPartialFailure(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-email", Email: "a@example.com", Name: "A",
		SendEmail: true, Subscribed: true,
	})
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-chat", Phone: "+923001234567", Name: "B",
		SendWhatsApp: true, Subscribed: true,
	})
	fixture.chat.err = errors.New("gateway down")

	report, err := fixture.service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("report = succeeded %d failed %d, want 1/1", report.Succeeded, report.Failed)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].SubscriberID != "sub-chat" {
		t.Errorf("failures = %+v", failures)
	}
}

func TestDispatchServiceRunVerseAuditFailureIsTolerated(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-email", Email: "a@example.com", Name: "A",
		SendEmail: true, Subscribed: true,
	})
	fixture.verses.createErr = errors.New("db down")

	report, err := fixture.service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", report.Succeeded)
	}
}

func TestDispatchServiceRunForSubscriber(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-both", Email: "b@example.com", Phone: "+923001234567", Name: "B",
		SendEmail: true, SendWhatsApp: true, Subscribed: true,
	})

	report, err := fixture.service.RunForSubscriber(context.Background(), "sub-both")
	if err != nil {
		t.Fatalf("RunForSubscriber() error = %v", err)
	}

	if report.Attempted != 1 || report.Succeeded != 1 {
		t.Errorf("report = %+v, want a single success", report)
	}
	if len(fixture.email.sent) != 1 || len(fixture.chat.sent) != 1 {
		t.Errorf("sends = email %d, chat %d, want 1/1", len(fixture.email.sent), len(fixture.chat.sent))
	}
}

func TestDispatchServiceRunForSubscriberNotFound(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)

	_, err := fixture.service.RunForSubscriber(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("RunForSubscriber() error = %v, want ErrNotFound", err)
	}
	if fixture.content.calls.Load() != 0 {
		t.Error("content must not be fetched for an unknown subscriber")
	}
}

func TestDispatchServiceRunForSubscriberChannel(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-both", Email: "b@example.com", Phone: "+923001234567", Name: "B",
		SendEmail: true, SendWhatsApp: true, Subscribed: true,
	})

	report, err := fixture.service.RunForSubscriberChannel(context.Background(), "sub-both", domain.ChannelWhatsApp)
	if err != nil {
		t.Fatalf("RunForSubscriberChannel() error = %v", err)
	}

	if report.Succeeded != 1 {
		t.Errorf("report = %+v, want one success", report)
	}
	if len(fixture.email.sent) != 0 {
		t.Error("email must not be sent on a whatsapp-only request")
	}
	if len(fixture.chat.sent) != 1 {
		t.Errorf("chat sends = %d, want 1", len(fixture.chat.sent))
	}
}

func TestDispatchServiceRunForSubscriberChannelNotEligible(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)
	fixture.addSubscriber(t, domain.Subscriber{
		ID: "sub-email", Email: "a@example.com", Name: "A",
		SendEmail: true, Subscribed: true,
	})

	_, err := fixture.service.RunForSubscriberChannel(context.Background(), "sub-email", domain.ChannelWhatsApp)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("RunForSubscriberChannel() error = %v, want ErrValidation", err)
	}
}

func TestDispatchServiceRunDirect(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)

	report, err := fixture.service.RunDirect(context.Background(), domain.ChannelEmail, " Guest@Example.COM ")
	if err != nil {
		t.Fatalf("RunDirect() error = %v", err)
	}

	if report.Attempted != 1 || report.Succeeded != 1 {
		t.Errorf("report = attempted %d succeeded %d, want 1/1", report.Attempted, report.Succeeded)
	}
	if len(fixture.email.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(fixture.email.sent))
	}
	if got := fixture.email.sent[0].To; got != "guest@example.com" {
		t.Errorf("recipient = %q, want normalized address", got)
	}

	fixture.subscribers.mu.Lock()
	stored := len(fixture.subscribers.byID)
	fixture.subscribers.mu.Unlock()
	if stored != 0 {
		t.Errorf("registry records = %d, direct sends must not register", stored)
	}
}

func TestDispatchServiceRunDirectRejectsBadAddress(t *testing.T) {
	t.Parallel()

	fixture := newDispatchFixture(t)

	if _, err := fixture.service.RunDirect(context.Background(), domain.ChannelEmail, "not-an-address"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad email error = %v, want ErrValidation", err)
	}
	if _, err := fixture.service.RunDirect(context.Background(), domain.ChannelWhatsApp, "12345"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad phone error = %v, want ErrValidation", err)
	}
	if fixture.content.calls.Load() != 0 {
		t.Errorf("content fetches = %d, want none for invalid recipients", fixture.content.calls.Load())
	}
}
