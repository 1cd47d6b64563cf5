package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	groupA = int64(-1001)
	groupB = int64(-1002)
	userX  = int64(11)
	userY  = int64(22)
)

type staticBudget map[int64]int

func (b staticBudget) DefaultAttempts(groupID int64) int {
	if v, ok := b[groupID]; ok {
		return v
	}
	return 3
}

func newTestService(t *testing.T) (*Service, *GormStore) {
	t.Helper()
	db := testutils.SetupTestDB(t, &Attempt{})
	store := NewGormStore(db)
	return NewService(store, 3, nil), store
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) SaveAttempt(context.Context, Attempt) error {
	return f.err
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes from fallback budget", func(t *testing.T) {
		svc, store := newTestService(t)

		row, err := svc.Get(ctx, groupA, userX)
		require.NoError(t, err)
		assert.Equal(t, 3, row.Remaining)
		assert.False(t, row.Blocked)

		persisted, err := store.LoadAttempts(ctx)
		require.NoError(t, err)
		require.Len(t, persisted, 1)
		assert.Equal(t, 3, persisted[0].Remaining)
	})

	t.Run("initializes from group budget", func(t *testing.T) {
		svc, _ := newTestService(t)
		svc.SetBudgetSource(staticBudget{groupB: 7})

		row, err := svc.Get(ctx, groupB, userX)
		require.NoError(t, err)
		assert.Equal(t, 7, row.Remaining)
	})

	t.Run("concurrent first access initializes once", func(t *testing.T) {
		svc, store := newTestService(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				row, err := svc.Get(ctx, groupA, userY)
				assert.NoError(t, err)
				assert.Equal(t, 3, row.Remaining)
			}()
		}
		wg.Wait()

		persisted, err := store.LoadAttempts(ctx)
		require.NoError(t, err)
		assert.Len(t, persisted, 1)
	})

	t.Run("persistence failure leaves nothing behind", func(t *testing.T) {
		svc, store := newTestService(t)
		svc.store = failingStore{Store: store, err: errors.New("disk full")}

		_, err := svc.Get(ctx, groupA, userX)
		require.Error(t, err)

		_, ok := svc.Peek(groupA, userX)
		assert.False(t, ok)
	})
}

func TestService_Decrement(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes one attempt", func(t *testing.T) {
		svc, _ := newTestService(t)

		row, ok, err := svc.Decrement(ctx, groupA, userX)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, row.Remaining)
	})

	t.Run("refuses at zero", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Set(ctx, groupA, userX, 0)
		require.NoError(t, err)

		row, ok, err := svc.Decrement(ctx, groupA, userX)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, row.Remaining)
	})

	t.Run("refuses when blocked regardless of counter", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Set(ctx, groupA, userX, 10)
		require.NoError(t, err)
		_, err = svc.Block(ctx, groupA, userX, true)
		require.NoError(t, err)

		row, ok, err := svc.Decrement(ctx, groupA, userX)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 10, row.Remaining)
	})

	t.Run("exactly one of concurrent decrements wins the last attempt", func(t *testing.T) {
		for round := 0; round < 20; round++ {
			svc, _ := newTestService(t)
			_, err := svc.Set(ctx, groupA, userX, 1)
			require.NoError(t, err)

			var wins atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, ok, err := svc.Decrement(ctx, groupA, userX)
					assert.NoError(t, err)
					if ok {
						wins.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
			row, err := svc.Get(ctx, groupA, userX)
			require.NoError(t, err)
			assert.Equal(t, 0, row.Remaining)
		}
	})

	t.Run("failed save does not consume", func(t *testing.T) {
		svc, store := newTestService(t)
		_, err := svc.Set(ctx, groupA, userX, 2)
		require.NoError(t, err)

		svc.store = failingStore{Store: store, err: errors.New("locked")}
		_, ok, err := svc.Decrement(ctx, groupA, userX)
		require.Error(t, err)
		assert.False(t, ok)

		row, found := svc.Peek(groupA, userX)
		require.True(t, found)
		assert.Equal(t, 2, row.Remaining)
	})
}

func TestService_SetAddBlock(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	row, err := svc.Set(ctx, groupA, userX, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Remaining)

	row, err = svc.Set(ctx, groupA, userX, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, row.Remaining)

	row, err = svc.Set(ctx, groupA, userX, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, row.Remaining)

	row, err = svc.Add(ctx, groupA, userX, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Remaining)

	row, err = svc.Add(ctx, groupA, userX, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, row.Remaining)

	row, err = svc.Block(ctx, groupA, userX, true)
	require.NoError(t, err)
	assert.True(t, row.Blocked)
	assert.Equal(t, 4, row.Remaining)

	row, err = svc.Block(ctx, groupA, userX, false)
	require.NoError(t, err)
	assert.False(t, row.Blocked)
	assert.Equal(t, 4, row.Remaining)

	persisted, err := store.LoadAttempts(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, 4, persisted[0].Remaining)
	assert.False(t, persisted[0].Blocked)
}

func TestService_Add_OnNewPairStartsFromDefault(t *testing.T) {
	svc, _ := newTestService(t)

	row, err := svc.Add(context.Background(), groupA, userY, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, row.Remaining)
}

func TestService_ResetAll(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.Set(ctx, groupA, userX, 0)
	require.NoError(t, err)
	_, err = svc.Block(ctx, groupA, userY, true)
	require.NoError(t, err)
	_, err = svc.Set(ctx, groupB, userX, 1)
	require.NoError(t, err)

	n, err := svc.ResetAll(ctx, groupA, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, row := range svc.Users(groupA) {
		assert.Equal(t, 5, row.Remaining)
	}
	blocked, _ := svc.Peek(groupA, userY)
	assert.True(t, blocked.Blocked)

	other, _ := svc.Peek(groupB, userX)
	assert.Equal(t, 1, other.Remaining)

	persisted, err := store.LoadAttempts(ctx)
	require.NoError(t, err)
	for _, row := range persisted {
		if row.GroupID == groupA {
			assert.Equal(t, 5, row.Remaining)
		}
	}

	n, err = svc.ResetAll(ctx, int64(-999), 5)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_PurgeGroup(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.Set(ctx, groupA, userX, 0)
	require.NoError(t, err)
	_, err = svc.Set(ctx, groupA, userY, 1)
	require.NoError(t, err)
	_, err = svc.Set(ctx, groupB, userX, 1)
	require.NoError(t, err)

	deleted, err := svc.PurgeGroup(ctx, groupA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Empty(t, svc.Users(groupA))
	assert.Equal(t, []int64{groupB}, svc.Groups())

	n, err := svc.ResetAll(ctx, groupA, 9)
	require.NoError(t, err)
	assert.Zero(t, n)

	persisted, err := store.LoadAttempts(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted, 1)

	row, err := svc.Get(ctx, groupA, userX)
	require.NoError(t, err)
	assert.Equal(t, 3, row.Remaining)
}

func TestService_ResetEveryGroup(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Set(ctx, groupA, userX, 0)
	require.NoError(t, err)
	_, err = svc.Set(ctx, groupB, userX, 0)
	require.NoError(t, err)

	total, err := svc.ResetEveryGroup(ctx, staticBudget{groupA: 2, groupB: 4}.DefaultAttempts)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	a, _ := svc.Peek(groupA, userX)
	b, _ := svc.Peek(groupB, userX)
	assert.Equal(t, 2, a.Remaining)
	assert.Equal(t, 4, b.Remaining)
}

func TestService_Load(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, store.SaveAttempts(ctx, []Attempt{
		{GroupID: groupA, UserID: userX, Remaining: 2},
		{GroupID: groupA, UserID: userY, Remaining: -4, Blocked: true},
	}))

	require.NoError(t, svc.Load(ctx))

	x, ok := svc.Peek(groupA, userX)
	require.True(t, ok)
	assert.Equal(t, 2, x.Remaining)

	y, ok := svc.Peek(groupA, userY)
	require.True(t, ok)
	assert.Equal(t, 0, y.Remaining)
	assert.True(t, y.Blocked)
}
