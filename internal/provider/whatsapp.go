package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

type whatsappRequest struct {
	To       string `json:"to"`
	Text     string `json:"text"`
	MediaURL string `json:"mediaUrl,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// WhatsAppGateway delivers chat messages through an HTTP WhatsApp gateway.
type WhatsAppGateway struct {
	client   *resty.Client
	endpoint string
}

func NewWhatsAppGateway(endpoint, token string) (*WhatsAppGateway, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(token) != "" {
		client.SetAuthToken(strings.TrimSpace(token))
	}

	return NewWhatsAppGatewayWithClient(endpoint, client)
}

func NewWhatsAppGatewayWithClient(endpoint string, client *resty.Client) (*WhatsAppGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("whatsapp gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid whatsapp gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &WhatsAppGateway{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (g *WhatsAppGateway) Send(ctx context.Context, msg ChatMessage) error {
	if g == nil || g.client == nil {
		return fmt.Errorf("whatsapp gateway is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return &SendError{Message: "recipient phone is required"}
	}
	if strings.TrimSpace(msg.Text) == "" && len(msg.Attachments) == 0 {
		return &SendError{Message: "message text is required"}
	}

	reqBody := whatsappRequest{
		To:   msg.To,
		Text: msg.Text,
	}

	// The first audio attachment wins; the text rides along as caption.
	if media := preferredAttachment(msg.Attachments); media != "" {
		reqBody.MediaURL = media
		reqBody.Caption = msg.Text
		reqBody.Text = ""
	}

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(g.endpoint)
	if err != nil {
		return &SendError{
			Message:   "whatsapp gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &SendError{
			Message:   "whatsapp gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &SendError{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func preferredAttachment(attachments []Attachment) string {
	for _, att := range attachments {
		if att.Type == AttachmentAudio && att.URL != "" {
			return att.URL
		}
	}
	for _, att := range attachments {
		if att.URL != "" {
			return att.URL
		}
	}
	return ""
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("whatsapp gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
