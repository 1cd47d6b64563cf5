package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var (
	ErrMissingFromAddress = errors.New("MAIL_FROM_ADDRESS is required")
	ErrNoRecipients       = errors.New("MAIL_ALERT_TO lists no recipients")
)

// Client is the part of the SMTP client the mailer needs.
type Client interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends operator alerts by e-mail.
type Mailer struct {
	config *config.MailConfig
	client Client
	logger *logging.Service
}

func NewMailer(cfg *config.MailConfig, logger *logging.Service) (*Mailer, error) {
	if cfg.FromAddress == "" {
		return nil, ErrMissingFromAddress
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts, mail.WithSMTPAuth(mail.SMTPAuthPlain))
		clientOpts = append(clientOpts, mail.WithUsername(cfg.Username))
	}
	if cfg.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(cfg.Password))
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewMailerWithClient(cfg, logger, client)
}

func NewMailerWithClient(cfg *config.MailConfig, logger *logging.Service, client Client) (*Mailer, error) {
	if cfg.FromAddress == "" {
		return nil, ErrMissingFromAddress
	}
	if len(cfg.AlertTo) == 0 {
		return nil, ErrNoRecipients
	}

	logger.Info("fault alerts enabled",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Strings("recipients", cfg.AlertTo))

	return &Mailer{
		config: cfg,
		client: client,
		logger: logger,
	}, nil
}

func (m *Mailer) newMessage() (*mail.Msg, error) {
	message := mail.NewMsg()

	from := m.config.FromAddress
	if m.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromAddress)
	}
	if err := message.From(from); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := message.To(m.config.AlertTo...); err != nil {
		return nil, fmt.Errorf("failed to set TO addresses: %w", err)
	}
	return message, nil
}

// NotifyFault mails subject and body to every alert recipient.
func (m *Mailer) NotifyFault(ctx context.Context, subject, body string) error {
	message, err := m.newMessage()
	if err != nil {
		return err
	}

	message.Subject("[2FA bot] " + subject)
	message.SetBodyString(mail.TypeTextPlain, body)

	start := time.Now()
	if err := m.client.DialAndSendWithContext(ctx, message); err != nil {
		m.logger.Error("failed to send fault alert",
			zap.Error(err),
			zap.Duration("attempt_duration", time.Since(start)))
		return fmt.Errorf("failed to send fault alert: %w", err)
	}

	m.logger.Info("fault alert sent",
		zap.String("subject", subject),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}

// Nop drops alerts, logging them instead.
type Nop struct {
	logger *logging.Service
}

func NewNop(logger *logging.Service) *Nop {
	return &Nop{logger: logger}
}

func (n *Nop) NotifyFault(_ context.Context, subject, _ string) error {
	n.logger.Debug("fault alert dropped, mail disabled", zap.String("subject", subject))
	return nil
}
