package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockStore struct {
	revokeTokenFunc func(jti string, expiresAt time.Time) error
	isRevokedFunc   func(jti string) (bool, error)
	cleanupFunc     func() (int, error)
	loadFunc        func() error
}

func (m *mockStore) RevokeToken(jti string, expiresAt time.Time) error {
	if m.revokeTokenFunc != nil {
		return m.revokeTokenFunc(jti, expiresAt)
	}
	return nil
}

func (m *mockStore) IsRevoked(jti string) (bool, error) {
	if m.isRevokedFunc != nil {
		return m.isRevokedFunc(jti)
	}
	return false, nil
}

func (m *mockStore) CleanupExpiredTokens() (int, error) {
	if m.cleanupFunc != nil {
		return m.cleanupFunc()
	}
	return 0, nil
}

func (m *mockStore) LoadFromDatabase() error {
	if m.loadFunc != nil {
		return m.loadFunc()
	}
	return nil
}

func TestService_RevokeToken(t *testing.T) {
	t.Run("delegates to the store", func(t *testing.T) {
		var gotJTI string
		var gotExpiry time.Time
		store := &mockStore{revokeTokenFunc: func(jti string, expiresAt time.Time) error {
			gotJTI, gotExpiry = jti, expiresAt
			return nil
		}}
		expiry := time.Now().Add(time.Hour)

		require.NoError(t, NewService(store, nil).RevokeToken("jti-1", expiry))
		assert.Equal(t, "jti-1", gotJTI)
		assert.Equal(t, expiry, gotExpiry)
	})

	t.Run("empty id", func(t *testing.T) {
		err := NewService(&mockStore{}, nil).RevokeToken("", time.Now())
		assert.ErrorIs(t, err, ErrMissingTokenID)
	})

	t.Run("store failure", func(t *testing.T) {
		cause := errors.New("disk full")
		store := &mockStore{revokeTokenFunc: func(string, time.Time) error { return cause }}

		err := NewService(store, nil).RevokeToken("jti-1", time.Now())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("no store", func(t *testing.T) {
		err := NewService(nil, nil).RevokeToken("jti-1", time.Now())
		assert.ErrorIs(t, err, ErrStoreNotConfigured)
	})
}

func TestService_IsTokenRevoked(t *testing.T) {
	store := &mockStore{isRevokedFunc: func(jti string) (bool, error) {
		switch jti {
		case "revoked":
			return true, nil
		case "broken":
			return false, errors.New("lookup failed")
		}
		return false, nil
	}}
	service := NewService(store, nil)

	revoked, err := service.IsTokenRevoked("revoked")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = service.IsTokenRevoked("fresh")
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = service.IsTokenRevoked("broken")
	assert.Error(t, err)

	_, err = NewService(nil, nil).IsTokenRevoked("any")
	assert.ErrorIs(t, err, ErrStoreNotConfigured)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.RevokeToken("live", now.Add(time.Hour)))
	require.NoError(t, store.RevokeToken("stale", now.Add(-time.Minute)))

	revoked, err := store.IsRevoked("live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked("stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	removed, err := store.CleanupExpiredTokens()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	revoked, err = store.IsRevoked("live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryStore_Persistence(t *testing.T) {
	db := testutils.SetupTestDB(t, &RevokedToken{})
	now := time.Now()

	first := NewMemoryStoreWithDB(db, nil)
	require.NoError(t, first.RevokeToken("live", now.Add(time.Hour)))
	require.NoError(t, first.RevokeToken("live", now.Add(2*time.Hour)))
	require.NoError(t, first.RevokeToken("stale", now.Add(-time.Minute)))

	var count int64
	require.NoError(t, db.Model(&RevokedToken{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	second := NewMemoryStoreWithDB(db, nil)
	require.NoError(t, second.LoadFromDatabase())

	revoked, err := second.IsRevoked("live")
	require.NoError(t, err)
	assert.True(t, revoked)

	_, exists := second.tokens["stale"]
	assert.False(t, exists)

	_, err = second.CleanupExpiredTokens()
	require.NoError(t, err)
	require.NoError(t, db.Model(&RevokedToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestService_CleanupWorker(t *testing.T) {
	cleaned := make(chan struct{}, 8)
	store := &mockStore{cleanupFunc: func() (int, error) {
		cleaned <- struct{}{}
		return 0, nil
	}}
	service := NewService(store, nil)

	service.StartCleanupWorker(5 * time.Millisecond)
	service.StartCleanupWorker(5 * time.Millisecond)

	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker never ran")
	}

	service.StopCleanupWorker()
	service.StopCleanupWorker()
}

func TestModule_RevokedTokenRejected(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &RevokedToken{})
	tokens := jwt.NewService(cfg, nil)

	var svc *Service
	app := fxtest.New(t,
		fx.Supply(cfg, db, logging.FromZap(zap.New(core)), tokens),
		Module,
		fx.Populate(&svc),
	)
	app.RequireStart()
	defer app.RequireStop()
	require.NotNil(t, svc)

	tokenString, err := tokens.GenerateToken(testutils.TestUserID, time.Hour)
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(tokenString)
	require.NoError(t, err)

	require.NoError(t, tokens.RevokeToken(claims))

	_, err = tokens.ValidateToken(tokenString)
	assert.ErrorIs(t, err, jwt.ErrTokenRevoked)
	assert.Equal(t, 1, logs.FilterMessage("token revoked").Len())
}

func TestModule_Disabled(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.Revocation.Enabled = false
	db := testutils.SetupTestDB(t)
	tokens := jwt.NewService(cfg, nil)

	var svc *Service
	app := fxtest.New(t,
		fx.Supply(cfg, db, logging.NewNop(), tokens),
		Module,
		fx.Populate(&svc),
	)
	require.NoError(t, app.Start(context.Background()))
	defer app.RequireStop()

	assert.Nil(t, svc)

	tokenString, err := tokens.GenerateToken(testutils.TestUserID, time.Hour)
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.ErrorIs(t, tokens.RevokeToken(claims), jwt.ErrNoRevocation)
}
