package dispatch

import (
	"reflect"
	"testing"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

func TestBuildPlan(t *testing.T) {
	t.Parallel()

	both := &domain.Subscriber{
		ID:           "sub-both",
		Email:        "both@example.com",
		Phone:        "+923001234567",
		SendEmail:    true,
		SendWhatsApp: true,
		Subscribed:   true,
	}
	emailOnly := &domain.Subscriber{
		ID:         "sub-email",
		Email:      "email@example.com",
		SendEmail:  true,
		Subscribed: true,
	}
	optedOut := &domain.Subscriber{
		ID:         "sub-out",
		Email:      "out@example.com",
		SendEmail:  true,
		Subscribed: false,
	}
	noAddress := &domain.Subscriber{
		ID:           "sub-bare",
		Email:        "bare@example.com",
		SendWhatsApp: true,
		Subscribed:   true,
	}

	plan := BuildPlan([]*domain.Subscriber{both, emailOnly, optedOut, noAddress, nil})

	if len(plan.Assignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(plan.Assignments))
	}
	if got := plan.Assignments[0].Channels; !reflect.DeepEqual(got, []domain.Channel{domain.ChannelEmail, domain.ChannelWhatsApp}) {
		t.Errorf("both channels = %v", got)
	}
	if got := plan.Assignments[1].Channels; !reflect.DeepEqual(got, []domain.Channel{domain.ChannelEmail}) {
		t.Errorf("email-only channels = %v", got)
	}

	if len(plan.Skipped) != 2 {
		t.Fatalf("skipped = %d, want 2", len(plan.Skipped))
	}
	for _, outcome := range plan.Skipped {
		if !outcome.Skipped {
			t.Errorf("outcome %q not marked skipped", outcome.SubscriberID)
		}
	}
}

func TestBuildPlanIsDeterministic(t *testing.T) {
	t.Parallel()

	subscribers := []*domain.Subscriber{
		{ID: "a", Email: "a@example.com", SendEmail: true, Subscribed: true},
		{ID: "b", Phone: "+14155550100", SendWhatsApp: true, Subscribed: true},
		{ID: "c", Email: "c@example.com", SendEmail: true, Subscribed: false},
	}

	first := BuildPlan(subscribers)
	second := BuildPlan(subscribers)

	if !reflect.DeepEqual(first, second) {
		t.Error("planning the same snapshot twice produced different plans")
	}
}
