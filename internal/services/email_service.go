package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailNotifier sends security notices to account holders. Notification
// failures are never allowed to affect the login flow.
type EmailNotifier interface {
	SendLockoutNotice(ctx context.Context, email string, lockedUntil time.Time) error
	SendPasswordChangedNotice(ctx context.Context, email string) error
}

// AWSSESEmailService sends notices using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendLockoutNotice tells the account holder their account was temporarily
// locked after repeated failed sign-in attempts.
func (s *AWSSESEmailService) SendLockoutNotice(ctx context.Context, email string, lockedUntil time.Time) error {
	subject := "Your account has been temporarily locked"
	body := fmt.Sprintf(
		"We blocked sign-in to your account after too many failed attempts.\n\n"+
			"Sign-in will be available again at %s.\n\n"+
			"If this wasn't you, we recommend changing your password once the lock expires.",
		lockedUntil.UTC().Format(time.RFC1123),
	)
	return s.send(ctx, email, subject, body)
}

// SendPasswordChangedNotice confirms a password change to the account holder.
func (s *AWSSESEmailService) SendPasswordChangedNotice(ctx context.Context, email string) error {
	subject := "Your password was changed"
	body := "The password for your account was just changed.\n\n" +
		"If you made this change, no action is needed. If you did not, contact support immediately."
	return s.send(ctx, email, subject, body)
}

func (s *AWSSESEmailService) send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("security notice sent", slog.String("subject", subject))
	return nil
}
