// Package email implements the email action, delivered over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

const defaultSMTPPort = 587

var (
	// ErrRecipientRequired is returned when the action has no recipient.
	ErrRecipientRequired = errors.New("email action requires a 'to' address")

	// ErrSubjectRequired is returned when the action has no subject.
	ErrSubjectRequired = errors.New("email action requires a 'subject'")

	// ErrSMTPNotConfigured is returned when no SMTP host is configured.
	ErrSMTPNotConfigured = errors.New("smtp host is not configured")
)

// SMTPConfig holds the transport settings shared by all email actions.
// These come from the engine configuration, not from workflow definitions.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Action sends one email. Subject and body were interpolated before the
// action was built.
type Action struct {
	To      []string
	From    string
	Subject string
	Body    string
	HTML    bool

	smtp SMTPConfig
}

// NewAction builds the action from its interpolated params.
func NewAction(smtp SMTPConfig, params map[string]any) (*Action, error) {
	to := parseRecipients(params["to"])
	if len(to) == 0 {
		return nil, ErrRecipientRequired
	}

	subject, _ := params["subject"].(string)
	if subject == "" {
		return nil, ErrSubjectRequired
	}

	body, _ := params["body"].(string)
	html, _ := params["html"].(bool)

	from, _ := params["from"].(string)
	if from == "" {
		from = smtp.From
	}

	return &Action{
		To:      to,
		From:    from,
		Subject: subject,
		Body:    body,
		HTML:    html,
		smtp:    smtp,
	}, nil
}

// Execute composes the message and hands it to the SMTP server.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "email_action")

	if a.smtp.Host == "" {
		return nil, ErrSMTPNotConfigured
	}

	msg := mail.NewMsg()

	if err := msg.From(a.From); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", a.From, err)
	}

	if err := msg.To(a.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject(a.Subject)

	if a.HTML {
		msg.SetBodyString(mail.TypeTextHTML, a.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, a.Body)
	}

	port := a.smtp.Port
	if port == 0 {
		port = defaultSMTPPort
	}

	options := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if a.smtp.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(a.smtp.Username),
			mail.WithPassword(a.smtp.Password),
		)
	}

	client, err := mail.NewClient(a.smtp.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	logger.InfoContext(ctx, "Sending email", "to", a.To, "subject", a.Subject)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "recipients", len(a.To))

	return map[string]any{
		"recipients": len(a.To),
		"subject":    a.Subject,
	}, nil
}

func parseRecipients(value any) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}

		return []string{v}
	case []any:
		var out []string

		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}

		return out
	case []string:
		return v
	default:
		return nil
	}
}
