package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"regexp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address" env:"SMTP_EMAIL_ADDRESS"`
	Password     string `json:"password" env:"SMTP_PASSWORD"`
	To           string `json:"to"`
}

type EmailNotifier struct {
	config SmtpConfig
}

func NewEmailNotifier(config SmtpConfig) *EmailNotifier {
	return &EmailNotifier{config: config}
}

var htmlTagRegex = regexp.MustCompile(`</?[a-z]+>`)

func (n *EmailNotifier) Send(ctx context.Context, text string) error {
	_, span := tracer.Start(ctx, "email:Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("OBS Watch <%s>", n.config.EmailAddress)
	mail.To = []string{n.config.To}
	mail.Subject = "OBS Bildirim"
	// messages are formatted for telegram's html parse mode, strip the
	// markup for the plain-text body
	mail.Text = []byte(htmlTagRegex.ReplaceAllString(text, ""))

	err := mail.Send(
		fmt.Sprintf("%s:%d", n.config.Server, n.config.Port),
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(fmt.Sprintf("%s:%d", n.config.Server, n.config.Port), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}

	return nil
}
