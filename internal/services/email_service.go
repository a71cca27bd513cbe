package services

import (
	"chatapp/app/config"
	"fmt"
	"log/slog"
	"strconv"

	"gopkg.in/gomail.v2"
)

type EmailService struct {
	from   string
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewEmailService returns a service that silently skips delivery when no
// SMTP host is configured.
func NewEmailService(config config.EmailConfig, logger *slog.Logger) *EmailService {
	service := &EmailService{logger: logger, from: config.From}
	if config.SMTHost == "" {
		return service
	}

	var port, _ = strconv.Atoi(config.SMTPort)
	service.dialer = gomail.NewDialer(config.SMTHost, port, config.Username, config.Password)
	return service
}

func (e *EmailService) SendWelcomeEmail(email, name string) error {
	if e.dialer == nil {
		e.logger.Debug("smtp disabled, skipping welcome email", "email", email)
		return nil
	}

	var message = gomail.NewMessage()
	message.SetHeader("From", e.from)
	message.SetHeader("To", email)
	message.SetHeader("Subject", "Welcome to the chat")

	htmlBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Welcome</title>
		</head>
		<body>
			<h2>Hi %s,</h2>
			<p>Your account is ready. Sign in with this email address to start chatting.</p>
			<p>If you didn't create an account, please ignore this email.</p>
		</body>
		</html>
	`, name)

	message.SetBody("text/html", htmlBody)
	message.AddAlternative("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour account is ready. Sign in with this email address to start chatting.\n", name))

	if err := e.dialer.DialAndSend(message); err != nil {
		e.logger.Error("failed to send welcome email", "error", err, "email", email)
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	e.logger.Info("welcome email sent", "email", email)
	return nil
}
