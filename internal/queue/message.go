package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

// DispatchKind selects the scope of a triggered run.
type DispatchKind string

const (
	// DispatchAll runs a full dispatch over every registered subscriber.
	DispatchAll DispatchKind = "ALL"
	// DispatchSubscriber targets a single subscriber.
	DispatchSubscriber DispatchKind = "SUBSCRIBER"
)

func (k DispatchKind) IsValid() bool {
	switch k {
	case DispatchAll, DispatchSubscriber:
		return true
	}
	return false
}

// DispatchMessage is the broker payload asking the worker to run a
// dispatch. Channel, when set, restricts a subscriber-scoped run to one
// channel.
type DispatchMessage struct {
	MessageID    string         `json:"messageId"`
	Kind         DispatchKind   `json:"kind"`
	SubscriberID string         `json:"subscriberId,omitempty"`
	Channel      domain.Channel `json:"channel,omitempty"`
	RequestedAt  time.Time      `json:"requestedAt"`
}

func (m DispatchMessage) Validate() error {
	if strings.TrimSpace(m.MessageID) == "" {
		return fmt.Errorf("messageId is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid dispatch kind %q", m.Kind)
	}
	if m.Kind == DispatchSubscriber && strings.TrimSpace(m.SubscriberID) == "" {
		return fmt.Errorf("subscriberId is required for subscriber dispatch")
	}
	if m.Kind == DispatchAll && m.Channel != "" {
		return fmt.Errorf("channel restriction is only valid for subscriber dispatch")
	}
	if m.Channel != "" && !m.Channel.IsValid() {
		return fmt.Errorf("invalid channel %q", m.Channel)
	}
	return nil
}
