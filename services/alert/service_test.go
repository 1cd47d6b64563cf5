package alert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type MockMailClient struct {
	sendFunc func(msg *mail.Msg) error
	sent     []*mail.Msg
}

func (m *MockMailClient) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	m.sent = append(m.sent, messages...)
	if m.sendFunc != nil {
		return m.sendFunc(messages[0])
	}
	return nil
}

func getTestMailConfig() *config.MailConfig {
	return &config.MailConfig{
		Enabled:     true,
		Host:        "localhost",
		Port:        587,
		Encryption:  "tls",
		FromAddress: "bot@example.com",
		FromName:    "2FA Bot",
		AlertTo:     []string{"ops@example.com", "oncall@example.com"},
	}
}

func TestNewMailerWithClient(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		cfg := getTestMailConfig()
		client := &MockMailClient{}

		mailer, err := NewMailerWithClient(cfg, nil, client)
		require.NoError(t, err)
		assert.Equal(t, client, mailer.client)
	})

	t.Run("missing from address", func(t *testing.T) {
		cfg := getTestMailConfig()
		cfg.FromAddress = ""

		_, err := NewMailerWithClient(cfg, nil, &MockMailClient{})
		assert.ErrorIs(t, err, ErrMissingFromAddress)
	})

	t.Run("no recipients", func(t *testing.T) {
		cfg := getTestMailConfig()
		cfg.AlertTo = nil

		_, err := NewMailerWithClient(cfg, nil, &MockMailClient{})
		assert.ErrorIs(t, err, ErrNoRecipients)
	})
}

func TestMailer_NotifyFault(t *testing.T) {
	t.Run("sends to every recipient", func(t *testing.T) {
		client := &MockMailClient{}
		mailer, err := NewMailerWithClient(getTestMailConfig(), nil, client)
		require.NoError(t, err)

		require.NoError(t, mailer.NotifyFault(context.Background(), "Code generation failed", "group -100 is broken"))
		require.Len(t, client.sent, 1)

		msg := client.sent[0]
		assert.Equal(t, []string{"[2FA bot] Code generation failed"}, msg.GetGenHeader(mail.HeaderSubject))

		to := msg.GetToString()
		assert.Len(t, to, 2)
		assert.True(t, strings.Contains(to[0], "ops@example.com"))

		from := msg.GetFromString()
		require.Len(t, from, 1)
		assert.Contains(t, from[0], "bot@example.com")
	})

	t.Run("client failure", func(t *testing.T) {
		client := &MockMailClient{sendFunc: func(*mail.Msg) error { return errors.New("connection refused") }}
		mailer, err := NewMailerWithClient(getTestMailConfig(), nil, client)
		require.NoError(t, err)

		err = mailer.NotifyFault(context.Background(), "subject", "body")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("invalid recipient", func(t *testing.T) {
		cfg := getTestMailConfig()
		cfg.AlertTo = []string{"not an address"}
		client := &MockMailClient{}
		mailer, err := NewMailerWithClient(cfg, nil, client)
		require.NoError(t, err)

		err = mailer.NotifyFault(context.Background(), "subject", "body")
		require.Error(t, err)
		assert.Empty(t, client.sent)
	})
}

func TestNewProvider(t *testing.T) {
	cfg := testutils.GetTestConfig()

	notifier, err := NewProvider(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Nop{}, notifier)
	assert.NoError(t, notifier.NotifyFault(context.Background(), "s", "b"))

	cfg.Mail = *getTestMailConfig()
	cfg.Mail.FromAddress = ""
	_, err = NewProvider(cfg, nil)
	assert.ErrorIs(t, err, ErrMissingFromAddress)
}
