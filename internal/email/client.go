package email

import (
	"fmt"

	"eva-notify/internal/config"

	"gopkg.in/gomail.v2"
)

// Dialer é a parte do gomail.Dialer usada pelo serviço
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	fromName  string
	fromEmail string
	dialer    Dialer
}

// NewEmailService cria uma nova instância do serviço de email
func NewEmailService(cfg *config.Config) (*EmailService, error) {
	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		return nil, fmt.Errorf("SMTP credentials not configured")
	}

	dialer := gomail.NewDialer(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
	)

	return newEmailService(cfg.SMTPFromName, cfg.SMTPFromEmail, dialer), nil
}

func newEmailService(fromName, fromEmail string, dialer Dialer) *EmailService {
	return &EmailService{fromName: fromName, fromEmail: fromEmail, dialer: dialer}
}

// SendEmail envia um email com HTML
func (s *EmailService) SendEmail(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.fromEmail, s.fromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
