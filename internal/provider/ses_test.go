package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go"
)

type fakeSESClient struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSESClient) SendEmail(ctx context.Context, input *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{}, nil
}

func TestSESEmailSenderSend(t *testing.T) {
	t.Parallel()

	client := &fakeSESClient{}
	sender, err := NewSESEmailSenderWithClient(client, "verses@example.com")
	if err != nil {
		t.Fatalf("NewSESEmailSenderWithClient() error = %v", err)
	}

	err = sender.Send(context.Background(), EmailMessage{
		To:      "ali@example.com",
		Subject: "Daily Verse - Al-Ikhlas 112:1",
		HTML:    "<p>body</p>",
		Text:    "body",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if client.input == nil {
		t.Fatal("no SendEmail call recorded")
	}
	if got := *client.input.FromEmailAddress; got != "verses@example.com" {
		t.Errorf("from = %q", got)
	}
	if got := client.input.Destination.ToAddresses; len(got) != 1 || got[0] != "ali@example.com" {
		t.Errorf("to = %v", got)
	}
	if got := *client.input.Content.Simple.Subject.Data; got != "Daily Verse - Al-Ikhlas 112:1" {
		t.Errorf("subject = %q", got)
	}
}

func TestSESEmailSenderRejectsEmptyRecipient(t *testing.T) {
	t.Parallel()

	sender, err := NewSESEmailSenderWithClient(&fakeSESClient{}, "verses@example.com")
	if err != nil {
		t.Fatalf("NewSESEmailSenderWithClient() error = %v", err)
	}

	err = sender.Send(context.Background(), EmailMessage{Subject: "s"})
	if err == nil {
		t.Fatal("Send() accepted empty recipient")
	}
}

func TestSESEmailSenderClassifiesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{
			name:          "throttled is transient",
			err:           &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "slow down"},
			wantTransient: true,
		},
		{
			name:          "bad address is permanent",
			err:           &smithy.GenericAPIError{Code: "BadRequestException", Message: "invalid address"},
			wantTransient: false,
		},
		{
			name:          "network failure is transient",
			err:           fmt.Errorf("dial tcp: connection refused"),
			wantTransient: true,
		},
		{
			name:          "cancelled context is permanent",
			err:           fmt.Errorf("request aborted: %w", context.Canceled),
			wantTransient: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender, err := NewSESEmailSenderWithClient(&fakeSESClient{err: tt.err}, "verses@example.com")
			if err != nil {
				t.Fatalf("NewSESEmailSenderWithClient() error = %v", err)
			}

			sendErr := sender.Send(context.Background(), EmailMessage{To: "ali@example.com"})
			if sendErr == nil {
				t.Fatal("Send() returned nil for failing client")
			}

			var classified *SendError
			if !errors.As(sendErr, &classified) {
				t.Fatalf("Send() error %T is not a SendError", sendErr)
			}
			if got := IsTransient(sendErr); got != tt.wantTransient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.wantTransient)
			}
		})
	}
}

func TestNewSESEmailSenderWithClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewSESEmailSenderWithClient(nil, "verses@example.com"); err == nil {
		t.Error("nil client accepted")
	}
	if _, err := NewSESEmailSenderWithClient(&fakeSESClient{}, " "); err == nil {
		t.Error("blank from address accepted")
	}
}
