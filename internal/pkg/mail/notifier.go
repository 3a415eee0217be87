package mail

import (
	"fmt"
	"strings"

	"github.com/aprendia/aprendia/internal/pkg/env"
)

// Notifier sends the transactional emails of the identity lifecycle. The
// lifecycle engine only depends on this interface; tests inject a fake.
type Notifier interface {
	SendVerificationCode(to string, name string, code string) error
	SendPasswordReset(to string, name string, token string) error
}

// SMTPNotifier delivers lifecycle emails through the SMTP mailer
type SMTPNotifier struct{}

// NewSMTPNotifier creates a notifier backed by the SMTP mailer
func NewSMTPNotifier() *SMTPNotifier {
	return &SMTPNotifier{}
}

func (n *SMTPNotifier) SendVerificationCode(to string, name string, code string) error {
	body := fmt.Sprintf(
		"<p>Hola %s,</p>"+
			"<p>Tu código de verificación es: <b>%s</b></p>"+
			"<p>El código caduca en 15 minutos.</p>",
		displayName(name), code,
	)
	return SendMail(to, "Verifica tu correo - Aprendia", body)
}

func (n *SMTPNotifier) SendPasswordReset(to string, name string, token string) error {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	body := fmt.Sprintf(
		"<p>Hola %s,</p>"+
			"<p>Para restablecer tu contraseña abre el siguiente enlace:</p>"+
			"<p><a href=\"%s/reset-password?token=%s\">Restablecer contraseña</a></p>"+
			"<p>El enlace caduca en 1 hora.</p>",
		displayName(name), base, token,
	)
	return SendMail(to, "Restablece tu contraseña - Aprendia", body)
}

func displayName(name string) string {
	if name == "" {
		return "estudiante"
	}
	return name
}
