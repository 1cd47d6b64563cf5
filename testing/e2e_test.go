package e2etesting

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/api"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/app"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID  = testutils.TestAdminID
	memberID = testutils.TestUserID
	helperID = int64(2002)
)

func startApp(t *testing.T, testConfig *TestConfig) *E2EApp {
	t.Helper()

	e2eApp, err := BuildTestApp(app.NewApp(), testConfig)
	require.NoError(t, err)
	require.NoError(t, e2eApp.Start(context.Background()))
	t.Cleanup(e2eApp.Stop)
	return e2eApp
}

func client(t *testing.T, e2eApp *E2EApp, userID int64) *HTTPClient {
	t.Helper()
	c, err := e2eApp.Client(userID)
	require.NoError(t, err)
	return c
}

// do unwraps a client call: do(t)(c.Get(path)).
func do(t *testing.T) func(*Response, error) *Response {
	return func(resp *Response, err error) *Response {
		t.Helper()
		require.NoError(t, err)
		return resp
	}
}

func TestE2E_BotOverHTTP(t *testing.T) {
	e2eApp := startApp(t, &TestConfig{EnableCoverage: true})

	adminClient := client(t, e2eApp, adminID)
	member := client(t, e2eApp, memberID)

	group := fmt.Sprintf("%s/admin/groups/%d", api.Prefix, testutils.TestGroupID)
	user := fmt.Sprintf("%s/users/%d", group, memberID)
	retrieve := fmt.Sprintf("%s/groups/%d/retrieve", api.Prefix, testutils.TestGroupID)

	t.Run("public routes", func(t *testing.T) {
		anon := member.Anonymous()
		do(t)(anon.Get("/healthz")).AssertStatus(t, http.StatusNoContent)
		do(t)(anon.Get(api.Prefix+"/openapi.json")).AssertContains(t, "/api/v1/tokens/revoke")
		do(t)(anon.Get(api.Prefix+"/openapi.yaml")).AssertStatus(t, http.StatusOK)
		do(t)(anon.Get(api.Prefix+"/admin/groups")).AssertStatus(t, http.StatusUnauthorized)
	})

	t.Run("register and configure a group", func(t *testing.T) {
		resp := do(t)(adminClient.Put(group, map[string]any{
			"secret":           testutils.TestSecret,
			"cadence":          10,
			"default_attempts": 2,
		}))
		resp.AssertStatus(t, http.StatusCreated)

		do(t)(adminClient.Patch(group, map[string]any{"style": "minimal"})).AssertStatus(t, http.StatusOK)
		do(t)(adminClient.Post(group+"/pause", nil)).AssertStatus(t, http.StatusOK)
		do(t)(adminClient.Post(group+"/resume", nil)).AssertStatus(t, http.StatusOK)

		resp = do(t)(adminClient.Get(api.Prefix+"/admin/groups"))
		resp.AssertStatus(t, http.StatusOK)
		resp.AssertContains(t, fmt.Sprint(testutils.TestGroupID))
		resp.AssertNotContains(t, testutils.TestSecret)
	})

	t.Run("member retrieves a code privately", func(t *testing.T) {
		resp := do(t)(member.Post(retrieve, nil))
		resp.AssertStatus(t, http.StatusOK)

		var body api.RetrieveResponse
		require.NoError(t, resp.GetJSON(&body))
		assert.Equal(t, 1, body.Remaining)

		var private int
		for _, m := range e2eApp.Transport.Messages() {
			if m.Private && m.ChatID == memberID {
				private++
			}
		}
		assert.Equal(t, 1, private)
	})

	t.Run("admin manages attempts", func(t *testing.T) {
		do(t)(adminClient.Get(group+"/users")).AssertContains(t, fmt.Sprint(memberID))

		var row ledger.Attempt
		require.NoError(t, do(t)(adminClient.Get(user)).GetJSON(&row))
		assert.Equal(t, 1, row.Remaining)

		do(t)(adminClient.Put(user+"/attempts", map[string]int{"value": 5})).AssertStatus(t, http.StatusOK)
		require.NoError(t, do(t)(adminClient.Post(user+"/attempts", map[string]int{"delta": -2})).GetJSON(&row))
		assert.Equal(t, 3, row.Remaining)

		do(t)(adminClient.Post(user+"/block", nil)).AssertStatus(t, http.StatusOK)
		do(t)(member.Post(retrieve, nil)).AssertStatus(t, http.StatusForbidden)
		do(t)(adminClient.Post(user+"/unblock", nil)).AssertStatus(t, http.StatusOK)

		var reset api.ResetResponse
		require.NoError(t, do(t)(adminClient.Post(group+"/reset", nil)).GetJSON(&reset))
		assert.Equal(t, 1, reset.Reset)
	})

	t.Run("member cannot administer", func(t *testing.T) {
		do(t)(member.Get(api.Prefix+"/admin/groups")).AssertStatus(t, http.StatusForbidden)
	})

	t.Run("admin roster", func(t *testing.T) {
		do(t)(adminClient.Post(api.Prefix+"/admin/admins", map[string]int64{"user_id": helperID})).
			AssertStatus(t, http.StatusCreated)
		do(t)(adminClient.Get(api.Prefix+"/admin/admins")).AssertContains(t, fmt.Sprint(helperID))
		do(t)(adminClient.Delete(fmt.Sprintf("%s/admin/admins/%d", api.Prefix, helperID))).
			AssertStatus(t, http.StatusNoContent)
	})

	t.Run("two step delete", func(t *testing.T) {
		var confirmation admin.Confirmation
		resp := do(t)(adminClient.Post(group+"/delete", nil))
		resp.AssertStatus(t, http.StatusAccepted)
		require.NoError(t, resp.GetJSON(&confirmation))

		do(t)(adminClient.Delete(api.Prefix+"/admin/confirmations/"+confirmation.Token)).
			AssertStatus(t, http.StatusNoContent)

		resp = do(t)(adminClient.Post(group+"/delete", nil))
		require.NoError(t, resp.GetJSON(&confirmation))
		do(t)(adminClient.Post(api.Prefix+"/admin/confirmations/"+confirmation.Token, nil)).
			AssertStatus(t, http.StatusOK)

		do(t)(member.Post(retrieve, nil)).AssertStatus(t, http.StatusServiceUnavailable)
	})

	t.Run("token revocation", func(t *testing.T) {
		do(t)(member.Post(api.Prefix+"/tokens/revoke", nil)).AssertStatus(t, http.StatusNoContent)
		do(t)(member.Post(retrieve, nil)).AssertStatus(t, http.StatusUnauthorized)
	})

	e2eApp.AssertMinimumCoverage(t, 100)
}

func TestE2E_SeededGroupPrompts(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(fmt.Sprintf(`groups:
  - id: %d
    secret: %s
    cadence: 30
`, testutils.TestGroupID, testutils.TestSecret)), 0o600))

	e2eApp := startApp(t, &TestConfig{
		SeedFile: seed,
		OverrideConfig: func(cfg *config.Config) *config.Config {
			cfg.Scheduler.CadenceUnit = time.Millisecond
			return cfg
		},
	})

	status, ok := e2eApp.App.Scheduler().Status(testutils.TestGroupID)
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, status.Cadence)

	assert.Eventually(t, func() bool {
		return e2eApp.Transport.GroupMessages(testutils.TestGroupID) > 0
	}, 2*time.Second, 10*time.Millisecond)

	resp := do(t)(client(t, e2eApp, memberID).Post(
		fmt.Sprintf("%s/groups/%d/retrieve", api.Prefix, testutils.TestGroupID), nil))
	resp.AssertStatus(t, http.StatusOK)
}
