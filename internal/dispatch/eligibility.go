package dispatch

import (
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

// Assignment pairs a subscriber with the channels a run will attempt for
// them.
type Assignment struct {
	Subscriber *domain.Subscriber
	Channels   []domain.Channel
}

// Plan is the resolved input of a dispatch run: who gets sent to over
// which channels, and who was passed over. Building a plan is a pure
// function of the subscriber snapshot, so re-planning the same snapshot
// yields the same decisions.
type Plan struct {
	Assignments []Assignment
	Skipped     []domain.Outcome
}

// BuildPlan resolves eligibility for a subscriber snapshot. Subscribers
// with no eligible channel (unsubscribed, all channels opted out, or no
// usable address for any opted-in channel) become skipped outcomes and
// are never attempted.
func BuildPlan(subscribers []*domain.Subscriber) Plan {
	plan := Plan{}
	for _, subscriber := range subscribers {
		if subscriber == nil {
			continue
		}

		channels := subscriber.EligibleChannels()
		if len(channels) == 0 {
			plan.Skipped = append(plan.Skipped, domain.Outcome{
				SubscriberID: subscriber.ID,
				Skipped:      true,
			})
			continue
		}

		plan.Assignments = append(plan.Assignments, Assignment{
			Subscriber: subscriber,
			Channels:   channels,
		})
	}
	return plan
}
