package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Channel represents a delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelWhatsApp:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Channels returns all delivery channels in a stable order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelWhatsApp}
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// E.164: leading +, non-zero first digit, 7-15 digits total.
	phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// Subscriber is a registered recipient with one or more contact addresses
// and per-channel opt-in flags.
type Subscriber struct {
	ID           string
	Email        string
	Phone        string
	Name         string
	SendEmail    bool
	SendWhatsApp bool
	Subscribed   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email address. Empty stays empty.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks a non-empty address against the accepted shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email %q", ErrValidation, email)
	}
	return nil
}

// NormalizePhone strips separators and validates the E.164 shape.
func NormalizePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", nil
	}

	var b strings.Builder
	for _, r := range trimmed {
		switch r {
		case ' ', '-', '(', ')', '.':
			continue
		default:
			b.WriteRune(r)
		}
	}

	normalized := b.String()
	if !phonePattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: phone must be E.164, e.g. +923001234567", ErrValidation)
	}
	return normalized, nil
}

func (s *Subscriber) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if s.Email == "" && s.Phone == "" {
		return fmt.Errorf("%w: at least one of email or phone is required", ErrValidation)
	}
	if s.Email != "" {
		if err := ValidateEmail(s.Email); err != nil {
			return err
		}
	}
	if s.Phone != "" && !phonePattern.MatchString(s.Phone) {
		return fmt.Errorf("%w: invalid phone %q", ErrValidation, s.Phone)
	}
	if !s.SendEmail && !s.SendWhatsApp {
		return fmt.Errorf("%w: at least one of send_email or send_whatsapp must be true", ErrValidation)
	}
	return nil
}

// EligibleChannels resolves the channels a dispatch run should attempt for
// this subscriber. A channel is eligible only when the subscriber opted in
// and the matching contact address is present. The result depends on the
// subscriber record alone, never on prior run history.
func (s *Subscriber) EligibleChannels() []Channel {
	if !s.Subscribed {
		return nil
	}

	channels := make([]Channel, 0, 2)
	if s.SendEmail && s.Email != "" {
		channels = append(channels, ChannelEmail)
	}
	if s.SendWhatsApp && s.Phone != "" {
		channels = append(channels, ChannelWhatsApp)
	}
	return channels
}
