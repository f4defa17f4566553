package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/exam-registration/internal/config"
)

const codeSubject = "Your exam registration verification code"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers verification codes over SMTP.
type Mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     sendFunc
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

// SendCode emails code to the applicant. net/smtp has no context support, so
// ctx is only checked before dialing.
func (m *Mailer) SendCode(ctx context.Context, to, name, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := m.send(addr, auth, m.from, []string{to}, composeCode(m.from, to, name, code)); err != nil {
		return fmt.Errorf("send code to %s: %w", to, err)
	}
	return nil
}

func composeCode(from, to, name, code string) []byte {
	greeting := "Hello"
	if name = strings.TrimSpace(name); name != "" {
		greeting += " " + name
	}
	body := fmt.Sprintf("%s,\r\n\r\nYour verification code is %s.\r\n"+
		"Enter it to finish your exam registration. If you did not request it, ignore this email.\r\n",
		greeting, code)
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n"+
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, to, codeSubject, body))
}
