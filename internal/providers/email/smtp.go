package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	jwemail "github.com/jordan-wright/email"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg  Config
	send func(e *jwemail.Email, addr string, auth smtp.Auth) error
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{
		cfg: cfg,
		send: func(e *jwemail.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, textBody string) error {
	if len(to) == 0 {
		return errors.New("email: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	e := jwemail.NewEmail()
	e.From = p.cfg.From
	e.To = to
	e.Subject = subject
	e.Text = []byte(textBody)

	return p.send(e, addr, auth)
}
