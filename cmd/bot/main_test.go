package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunToken(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testutils.TestJWTKey)
	t.Setenv("JWT_ISSUER", "bot-cli")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"token", "-user", "1001", "-ttl", "1h"}, &out))

	token := strings.SplitN(out.String(), "\n", 2)[0]
	cfg := &config.Config{}
	require.NoError(t, config.LoadConfig(cfg))

	claims, err := jwt.NewService(cfg, nil).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), claims.UserID)
	assert.Contains(t, out.String(), "# expires ")
}

func TestRunToken_RequiresUser(t *testing.T) {
	err := run(context.Background(), []string{"token"}, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "-user")
}

func TestRunToken_RequiresKey(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	err := run(context.Background(), []string{"token", "-user", "7"}, &bytes.Buffer{})

	assert.ErrorIs(t, err, jwt.ErrMissingKey)
}
