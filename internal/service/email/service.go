package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"notify-hub/internal/config"
)

type Service interface {
	SendNotificationEmail(ctx context.Context, toEmail, title, message string) error
}

type service struct {
	client *resend.Client
	config *config.Config
	tmpl   *template.Template
}

const notificationTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; margin: 0; padding: 24px;">
	<div style="max-width: 560px; margin: 0 auto; border: 1px solid #e4e7eb; border-radius: 8px; padding: 24px;">
		<h2 style="margin-top: 0;">{{.Title}}</h2>
		<p style="line-height: 1.6;">{{.Message}}</p>
		<p style="color: #7b8794; font-size: 12px; margin-bottom: 0;">
			You are receiving this because notifications are enabled for your account.
		</p>
	</div>
</body>
</html>`

func NewService(cfg *config.Config) Service {
	return &service{
		client: resend.NewClient(cfg.ResendAPIKey),
		config: cfg,
		tmpl:   template.Must(template.New("notification").Parse(notificationTemplate)),
	}
}

func (s *service) SendNotificationEmail(ctx context.Context, toEmail, title, message string) error {
	var body bytes.Buffer
	err := s.tmpl.Execute(&body, struct {
		Title   string
		Message string
	}{Title: title, Message: message})
	if err != nil {
		return fmt.Errorf("failed to render notification email: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Notify Hub <%s>", s.config.FromEmail),
		To:      []string{toEmail},
		Subject: title,
		Html:    body.String(),
	}

	if _, err := s.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}
