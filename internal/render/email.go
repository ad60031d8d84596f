package render

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/provider"
)

// emailTemplate is the full message body. The Arabic block is rendered
// right-to-left; the unsubscribe footer is only emitted when a public
// base url is configured.
const emailTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Georgia, serif; color: #2c2c2c; max-width: 600px; margin: 0 auto; padding: 24px;">
  <p>Assalamu Alaikum{{if .Name}} {{.Name}}{{end}},</p>
  <p>Here is your verse for today:</p>
  <blockquote dir="rtl" lang="ar" style="font-size: 1.5em; line-height: 2; text-align: right; margin: 24px 0;">{{.TextArabic}}</blockquote>
  <p style="font-style: italic;">&ldquo;{{.TextEnglish}}&rdquo;</p>
  <p style="color: #6b6b6b;">&mdash; {{.SourceLabel}}</p>
{{if .Commentary}}  <p>{{.Commentary}}</p>
{{end}}{{if .AudioURL}}  <p><a href="{{.AudioURL}}">Listen to the recitation</a></p>
{{end}}{{if .UnsubscribeURL}}  <hr style="border: none; border-top: 1px solid #e0e0e0; margin-top: 32px;">
  <p style="font-size: 0.8em; color: #9b9b9b;">No longer want these messages? <a href="{{.UnsubscribeURL}}">Unsubscribe</a>.</p>
{{end}}</body>
</html>
`

type emailData struct {
	Name           string
	TextArabic     string
	TextEnglish    string
	SourceLabel    string
	Commentary     string
	AudioURL       string
	UnsubscribeURL string
}

// EmailRenderer builds ready-to-send email messages from a verse and a
// recipient.
type EmailRenderer struct {
	tmpl          *template.Template
	subjectPrefix string
	publicBaseURL string
}

func NewEmailRenderer(subjectPrefix, publicBaseURL string) (*EmailRenderer, error) {
	subjectPrefix = strings.TrimSpace(subjectPrefix)
	if subjectPrefix == "" {
		return nil, fmt.Errorf("subject prefix is required")
	}

	tmpl, err := template.New("email").Parse(emailTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}

	return &EmailRenderer{
		tmpl:          tmpl,
		subjectPrefix: subjectPrefix,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}, nil
}

// Render produces the email for one subscriber. The subscriber must have
// an email address; eligibility is decided upstream.
func (r *EmailRenderer) Render(verse *domain.Verse, subscriber *domain.Subscriber) (*provider.EmailMessage, error) {
	if verse == nil {
		return nil, fmt.Errorf("verse is required")
	}
	if subscriber == nil || subscriber.Email == "" {
		return nil, fmt.Errorf("subscriber with email is required")
	}

	data := emailData{
		Name:           subscriber.Name,
		TextArabic:     verse.TextArabic,
		TextEnglish:    verse.TextEnglish,
		SourceLabel:    verse.SourceLabel(),
		Commentary:     verse.Commentary,
		AudioURL:       verse.AudioURL,
		UnsubscribeURL: r.unsubscribeURL(subscriber.ID),
	}

	var body strings.Builder
	if err := r.tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("execute email template: %w", err)
	}

	return &provider.EmailMessage{
		To:      subscriber.Email,
		Subject: fmt.Sprintf("%s - %s", r.subjectPrefix, verse.SourceLabel()),
		HTML:    body.String(),
		Text:    plainText(verse),
	}, nil
}

func (r *EmailRenderer) unsubscribeURL(subscriberID string) string {
	if r.publicBaseURL == "" || subscriberID == "" {
		return ""
	}
	return r.publicBaseURL + "/unsubscribe?id=" + url.QueryEscape(subscriberID)
}

func plainText(verse *domain.Verse) string {
	var b strings.Builder
	b.WriteString(verse.TextArabic)
	b.WriteString("\n\n")
	b.WriteString(verse.TextEnglish)
	b.WriteString("\n\n")
	b.WriteString(verse.SourceLabel())
	if verse.AudioURL != "" {
		b.WriteString("\n\nRecitation: ")
		b.WriteString(verse.AudioURL)
	}
	return b.String()
}
