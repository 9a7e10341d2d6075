package email

import "fmt"

// SendEndpointRemovedNotice avisa que o dispositivo deixou de receber lembretes
func (s *EmailService) SendEndpointRemovedNotice(to, recipientName string) error {
	subject := "🔕 Notificações da EVA desativadas no seu dispositivo"
	if err := s.SendEmail(to, subject, EndpointRemovedTemplate(recipientName)); err != nil {
		return fmt.Errorf("endpoint removed notice to %s: %w", to, err)
	}
	return nil
}
