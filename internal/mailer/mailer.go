// Package mailer отправляет транзакционные письма магазина по SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Имена шаблонов писем.
const (
	TemplateVerification = "verification"
	TemplateWelcome      = "welcome"
)

// Mailer отправляет письма по заданным шаблонам.
type Mailer struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	frontendURL string
}

// NewMailer создаёт SMTP-отправитель писем.
func NewMailer(host string, port int, username, password, from, frontendURL string) *Mailer {
	return &Mailer{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		from:        from,
		frontendURL: frontendURL,
	}
}

type emailContent struct {
	subject string
	text    string
	html    string
}

// Send отправляет письмо по имени шаблона. Данные шаблона: name, verificationUrl.
func (m *Mailer) Send(ctx context.Context, to, template string, data map[string]string) error {
	content, err := m.render(template, data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat("DigitalStore", m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(content.subject)
	msg.SetBodyString(mail.TypeTextPlain, content.text)
	msg.AddAlternativeString(mail.TypeTextHTML, content.html)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

func (m *Mailer) render(template string, data map[string]string) (emailContent, error) {
	name := data["name"]

	switch template {
	case TemplateVerification:
		verificationURL := data["verificationUrl"]
		return emailContent{
			subject: "Verify Your Email - DigitalStore",
			text: fmt.Sprintf(
				"Hello %s!\n\n"+
					"Thank you for registering with DigitalStore! To complete your registration, "+
					"please verify your email address by visiting this link:\n\n%s\n\n"+
					"This verification link will expire in 24 hours. If you didn't create an account "+
					"with DigitalStore, you can safely ignore this email.\n",
				name, verificationURL),
			html: fmt.Sprintf(
				`<h2>Hello %s!</h2>`+
					`<p>Thank you for registering with DigitalStore! To complete your registration, `+
					`please verify your email address:</p>`+
					`<p><a href="%s">Verify Email Address</a></p>`+
					`<p>This verification link will expire in 24 hours. If you didn't create an account `+
					`with DigitalStore, you can safely ignore this email.</p>`,
				name, verificationURL),
		}, nil

	case TemplateWelcome:
		return emailContent{
			subject: "Welcome to DigitalStore!",
			text: fmt.Sprintf(
				"Welcome to DigitalStore, %s!\n\n"+
					"Your email has been successfully verified! You now have full access to the platform: "+
					"browse digital products, make purchases and download what you bought.\n\n"+
					"Start shopping at: %s/products\n",
				name, m.frontendURL),
			html: fmt.Sprintf(
				`<h2>Welcome to DigitalStore, %s!</h2>`+
					`<p>Your email has been successfully verified! You now have full access to the platform: `+
					`browse digital products, make purchases and download what you bought.</p>`+
					`<p><a href="%s/products">Start Shopping</a></p>`,
				name, m.frontendURL),
		}, nil
	}

	return emailContent{}, fmt.Errorf("unknown email template: %s", template)
}
