package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) PurgeGroup(ctx context.Context, groupID int64) (int64, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(int64), args.Error(1)
}

func newTestRegistry(t *testing.T) (*Service, *GormStore) {
	t.Helper()
	db := testutils.SetupTestDB(t, &Group{})
	store := NewGormStore(db)
	return NewService(store, Defaults{
		Cadence:  10,
		Style:    presentation.StyleFull,
		Timezone: "UTC",
		Attempts: 5,
	}, nil), store
}

func TestService_Upsert_Create(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestRegistry(t)

	g, created, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Secret: ptr("jbsw y3dp ehpk 3pxp")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, testutils.TestSecret, g.Secret)
	assert.Equal(t, 10, g.Cadence)
	assert.Equal(t, presentation.StyleFull, g.Style)
	assert.Equal(t, "UTC", g.Timezone)
	assert.True(t, g.Active)
	assert.NotEmpty(t, g.Handle)

	persisted, err := store.LoadGroups(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, g.Handle, persisted[0].Handle)
}

func TestService_Upsert_PartialEdit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRegistry(t)

	original, _, err := svc.Upsert(ctx, testutils.TestGroupID, Update{
		Secret:   ptr(testutils.TestSecret),
		Cadence:  ptr(15),
		Timezone: ptr("Europe/Berlin"),
	})
	require.NoError(t, err)

	edited, created, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Cadence: ptr(5)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 5, edited.Cadence)
	assert.Equal(t, testutils.TestSecret, edited.Secret)
	assert.Equal(t, "Europe/Berlin", edited.Timezone)
	assert.Equal(t, original.Handle, edited.Handle)
	assert.Equal(t, original.CreatedAt, edited.CreatedAt)

	paused, _, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Active: ptr(false)})
	require.NoError(t, err)
	assert.False(t, paused.Active)
	assert.Empty(t, svc.Active())
}

func TestService_Upsert_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRegistry(t)

	_, _, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Secret: ptr(testutils.TestSecret)})
	require.NoError(t, err)

	tests := []struct {
		name    string
		groupID int64
		update  Update
		want    error
	}{
		{"personal chat id", 12345, Update{Secret: ptr(testutils.TestSecret)}, ErrInvalidGroupID},
		{"zero cadence", testutils.TestGroupID, Update{Cadence: ptr(0)}, ErrInvalidCadence},
		{"negative cadence", testutils.TestGroupID, Update{Cadence: ptr(-3)}, ErrInvalidCadence},
		{"unknown style", testutils.TestGroupID, Update{Style: ptr(presentation.Style("neon"))}, ErrInvalidStyle},
		{"unknown timezone", testutils.TestGroupID, Update{Timezone: ptr("Nowhere/City")}, ErrInvalidTimezone},
		{"negative attempts", testutils.TestGroupID, Update{DefaultAttempts: ptr(-1)}, ErrInvalidAttempts},
		{"malformed secret", testutils.TestGroupID, Update{Secret: ptr("not-base32!")}, ErrInvalidSecret},
		{"new group without secret", -555, Update{Cadence: ptr(3)}, ErrInvalidSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Upsert(ctx, tt.groupID, tt.update)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}

	g, ok := svc.Get(testutils.TestGroupID)
	require.True(t, ok)
	assert.Equal(t, testutils.TestSecret, g.Secret)
	assert.Equal(t, 10, g.Cadence)

	_, ok = svc.Get(-555)
	assert.False(t, ok)
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades to purger", func(t *testing.T) {
		svc, store := newTestRegistry(t)
		purger := &mockPurger{}
		svc.SetPurger(purger)
		purger.On("PurgeGroup", mock.Anything, testutils.TestGroupID).Return(int64(3), nil).Once()

		_, _, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Secret: ptr(testutils.TestSecret)})
		require.NoError(t, err)

		removed, err := svc.Remove(ctx, testutils.TestGroupID)
		require.NoError(t, err)
		assert.True(t, removed)

		_, ok := svc.Get(testutils.TestGroupID)
		assert.False(t, ok)

		persisted, err := store.LoadGroups(ctx)
		require.NoError(t, err)
		assert.Empty(t, persisted)
		purger.AssertExpectations(t)
	})

	t.Run("unknown group", func(t *testing.T) {
		svc, _ := newTestRegistry(t)
		purger := &mockPurger{}
		svc.SetPurger(purger)

		removed, err := svc.Remove(ctx, -42)
		require.NoError(t, err)
		assert.False(t, removed)
		purger.AssertNotCalled(t, "PurgeGroup", mock.Anything, mock.Anything)
	})

	t.Run("purge failure is reported", func(t *testing.T) {
		svc, _ := newTestRegistry(t)
		purger := &mockPurger{}
		svc.SetPurger(purger)
		purger.On("PurgeGroup", mock.Anything, testutils.TestGroupID).Return(int64(0), errors.New("db gone"))

		_, _, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Secret: ptr(testutils.TestSecret)})
		require.NoError(t, err)

		removed, err := svc.Remove(ctx, testutils.TestGroupID)
		require.Error(t, err)
		assert.True(t, removed)
	})
}

func TestService_RemoveCascadesToLedger(t *testing.T) {
	ctx := context.Background()
	db := testutils.SetupTestDB(t, &Group{}, &ledger.Attempt{})

	attempts := ledger.NewService(ledger.NewGormStore(db), 5, nil)
	svc := NewService(NewGormStore(db), Defaults{Attempts: 5}, nil)
	svc.SetPurger(attempts)
	attempts.SetBudgetSource(svc)

	_, _, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Secret: ptr(testutils.TestSecret), DefaultAttempts: ptr(2)})
	require.NoError(t, err)

	row, err := attempts.Get(ctx, testutils.TestGroupID, testutils.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Remaining)
	_, _, err = attempts.Decrement(ctx, testutils.TestGroupID, testutils.TestUserID)
	require.NoError(t, err)

	removed, err := svc.Remove(ctx, testutils.TestGroupID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, attempts.Users(testutils.TestGroupID))

	row, err = attempts.Get(ctx, testutils.TestGroupID, testutils.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, 5, row.Remaining)
}

func TestService_DefaultAttempts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRegistry(t)

	assert.Equal(t, 5, svc.DefaultAttempts(testutils.TestGroupID))

	_, _, err := svc.Upsert(ctx, testutils.TestGroupID, Update{Secret: ptr(testutils.TestSecret), DefaultAttempts: ptr(9)})
	require.NoError(t, err)
	assert.Equal(t, 9, svc.DefaultAttempts(testutils.TestGroupID))

	_, _, err = svc.Upsert(ctx, testutils.TestGroupID, Update{DefaultAttempts: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 5, svc.DefaultAttempts(testutils.TestGroupID))
}

func TestService_LoadAndList(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestRegistry(t)

	require.NoError(t, store.SaveGroup(ctx, Group{ID: -3, Secret: testutils.TestSecret, Cadence: 5, Style: presentation.StyleNext, Timezone: "UTC", Active: true, Handle: "h-3"}))
	require.NoError(t, store.SaveGroup(ctx, Group{ID: -7, Secret: testutils.TestSecret, Cadence: 5, Style: presentation.StyleNext, Timezone: "UTC", Active: false, Handle: "h-7"}))

	require.NoError(t, svc.Load(ctx))

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, int64(-7), list[0].ID)
	assert.Equal(t, int64(-3), list[1].ID)

	active := svc.Active()
	require.Len(t, active, 1)
	assert.Equal(t, int64(-3), active[0].ID)

	assert.Equal(t, "********", list[0].Redacted().Secret)
	assert.Equal(t, testutils.TestSecret, list[0].Secret)
}
