package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

// sesAPI is the slice of the SES v2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, input *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESEmailSender delivers email through the AWS SES v2 API.
type SESEmailSender struct {
	client sesAPI
	from   string
}

type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

func NewSESEmailSender(ctx context.Context, cfg SESConfig) (*SESEmailSender, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mail from address is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESEmailSender{
		client: sesv2.NewFromConfig(awsCfg),
		from:   strings.TrimSpace(cfg.From),
	}, nil
}

// NewSESEmailSenderWithClient injects a preconfigured client, for tests.
func NewSESEmailSenderWithClient(client sesAPI, from string) (*SESEmailSender, error) {
	if client == nil {
		return nil, fmt.Errorf("ses client is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("mail from address is required")
	}
	return &SESEmailSender{client: client, from: strings.TrimSpace(from)}, nil
}

func (s *SESEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("email sender is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return &SendError{Message: "recipient address is required"}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML)},
					Text: &types.Content{Data: aws.String(msg.Text)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return classifySESError(err)
	}
	return nil
}

func classifySESError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &SendError{
			Message:   fmt.Sprintf("ses %s", apiErr.ErrorCode()),
			Transient: isTransientSESCode(apiErr.ErrorCode()),
			Cause:     err,
		}
	}

	return &SendError{
		Message:   "ses request failed",
		Transient: !errors.Is(err, context.Canceled),
		Cause:     err,
	}
}

func isTransientSESCode(code string) bool {
	switch code {
	case "TooManyRequestsException", "LimitExceededException", "SendingPausedException":
		return true
	}
	return false
}
