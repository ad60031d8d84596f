package render

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/provider"
)

// WhatsAppRenderer builds chat messages. Plain text only; the recitation,
// when present, travels as an audio attachment rather than a bare link.
type WhatsAppRenderer struct{}

func NewWhatsAppRenderer() *WhatsAppRenderer {
	return &WhatsAppRenderer{}
}

func (r *WhatsAppRenderer) Render(verse *domain.Verse, subscriber *domain.Subscriber) (*provider.ChatMessage, error) {
	if verse == nil {
		return nil, fmt.Errorf("verse is required")
	}
	if subscriber == nil || subscriber.Phone == "" {
		return nil, fmt.Errorf("subscriber with phone is required")
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Assalamu Alaikum%s, here is your verse for today:\n\n", greeting(subscriber.Name))
	text.WriteString(verse.TextArabic)
	text.WriteString("\n\n")
	text.WriteString(verse.TextEnglish)
	if verse.Commentary != "" {
		text.WriteString("\n\n")
		text.WriteString(verse.Commentary)
	}
	text.WriteString("\n\n- ")
	text.WriteString(verse.SourceLabel())

	message := &provider.ChatMessage{
		To:   subscriber.Phone,
		Text: text.String(),
	}
	if verse.AudioURL != "" {
		message.Attachments = []provider.Attachment{{
			Type:     provider.AttachmentAudio,
			URL:      verse.AudioURL,
			Filename: fmt.Sprintf("recitation-%d-%d.mp3", verse.SurahNumber, verse.AyahNumber),
		}}
	}
	return message, nil
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return " " + name
}
