package domain

import "strings"

// ChannelError records one failed channel send for a subscriber.
type ChannelError struct {
	Channel Channel `json:"channel"`
	Error   string  `json:"error"`
}

// Outcome is the per-subscriber result of a dispatch run. Success is true
// only when every attempted channel succeeded. Skipped marks a subscriber
// with no eligible channel; it is a no-op, not a failure.
type Outcome struct {
	SubscriberID string         `json:"subscriberId"`
	Channels     []Channel      `json:"channels,omitempty"`
	Success      bool           `json:"success"`
	Skipped      bool           `json:"skipped,omitempty"`
	Errors       []ChannelError `json:"errors,omitempty"`
}

// ErrorSummary joins the per-channel error details into one line.
func (o Outcome) ErrorSummary() string {
	if len(o.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(o.Errors))
	for _, ce := range o.Errors {
		parts = append(parts, strings.ToLower(ce.Channel.String())+": "+ce.Error)
	}
	return strings.Join(parts, "; ")
}

// Report aggregates a dispatch run. Attempted counts subscribers with at
// least one eligible channel; Attempted == Succeeded + Failed.
type Report struct {
	RunID     string    `json:"runId"`
	VerseID   string    `json:"verseId"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Outcomes  []Outcome `json:"outcomes,omitempty"`
}

// Failures returns the outcomes of failed subscribers only.
func (r *Report) Failures() []Outcome {
	failures := make([]Outcome, 0, r.Failed)
	for _, o := range r.Outcomes {
		if !o.Skipped && !o.Success {
			failures = append(failures, o)
		}
	}
	return failures
}
