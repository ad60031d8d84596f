package provider

import (
	"context"
)

// AttachmentType distinguishes media kinds on outbound messages.
type AttachmentType string

const (
	AttachmentAudio AttachmentType = "audio"
)

// Attachment references a remote media file to deliver with a message.
type Attachment struct {
	Type     AttachmentType
	URL      string
	Filename string
}

// EmailMessage is a rendered, channel-ready email payload. Audio is
// delivered as a link inside the body rather than an attachment.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// ChatMessage is a rendered, channel-ready chat payload.
type ChatMessage struct {
	To          string
	Text        string
	Attachments []Attachment
}

// EmailSender is the outbound email delivery port.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ChatSender is the outbound chat delivery port.
type ChatSender interface {
	Send(ctx context.Context, msg ChatMessage) error
}
