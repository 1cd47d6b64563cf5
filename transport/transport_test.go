package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRetrievePayload(t *testing.T) {
	payload := RetrievePayload(-1001234567890)
	assert.Equal(t, "code:-1001234567890", payload)

	groupID, err := ParseRetrievePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), groupID)
}

func TestParseRetrievePayload_Invalid(t *testing.T) {
	for _, payload := range []string{"", "code:", "code:abc", "menu:-100", "-100"} {
		_, err := ParseRetrievePayload(payload)
		assert.ErrorIs(t, err, ErrInvalidPayload, payload)
	}
}

func TestIsGroupChat(t *testing.T) {
	assert.True(t, IsGroupChat(-100))
	assert.True(t, IsGroupChat(-1001234567890))
	assert.False(t, IsGroupChat(0))
	assert.False(t, IsGroupChat(42))
}

func TestFailure(t *testing.T) {
	assert.Nil(t, Failure("send", nil))

	err := Failure("send_private", errors.New("forbidden: bot can't initiate conversation"))
	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.Contains(t, err.Error(), "send_private")
}

func TestLog_NeverLogsPrivateText(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	tr := NewLog(logging.FromZap(zap.New(core)))

	require.NoError(t, tr.SendPrivate(context.Background(), 7, "code 123456"))
	require.NoError(t, tr.SendToGroup(context.Background(), -7, "prompt", &Affordance{Label: "Get code", Payload: RetrievePayload(-7)}))

	entries := recorded.All()
	require.Len(t, entries, 2)
	for _, field := range entries[0].Context {
		assert.NotEqual(t, "text", field.Key)
	}
	assert.Equal(t, "code:-7", entries[1].ContextMap()["payload"])
}
