package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/internal/keylock"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/zap"
)

// BudgetSource resolves the attempt budget a never-seen (group, user) pair
// starts with.
type BudgetSource interface {
	DefaultAttempts(groupID int64) int
}

// Service is the attempt ledger. Mutations of one (group, user) pair are
// serialized by a per-pair lock held under a shared per-group lock; bulk
// operations on a group (reset, purge) take the group lock exclusively.
// The shared row map is only locked for in-memory reads and writes, never
// across a store call.
type Service struct {
	store    Store
	budget   BudgetSource
	fallback int
	logger   *logging.Service
	now      func() time.Time

	mu   sync.RWMutex
	rows map[key]Attempt

	groupLocks *keylock.Map[int64]
	pairLocks  *keylock.Map[key]
}

func NewService(store Store, defaultAttempts int, logger *logging.Service) *Service {
	return &Service{
		store:      store,
		fallback:   max(defaultAttempts, 0),
		logger:     logger,
		now:        time.Now,
		rows:       make(map[key]Attempt),
		groupLocks: keylock.New[int64](),
		pairLocks:  keylock.New[key](),
	}
}

// SetBudgetSource installs the per-group default resolver.
func (s *Service) SetBudgetSource(budget BudgetSource) {
	s.budget = budget
}

// Load replaces the in-memory rows with the persisted ones.
func (s *Service) Load(ctx context.Context) error {
	rows, err := s.store.LoadAttempts(ctx)
	if err != nil {
		return err
	}

	loaded := make(map[key]Attempt, len(rows))
	for _, row := range rows {
		if row.Remaining < 0 {
			row.Remaining = 0
		}
		loaded[keyOf(row)] = row
	}

	s.mu.Lock()
	s.rows = loaded
	s.mu.Unlock()

	s.logger.Info("attempt ledger loaded", zap.Int("rows", len(loaded)))
	return nil
}

// Get returns the pair's record, creating it from the default budget on
// first access.
func (s *Service) Get(ctx context.Context, groupID, userID int64) (Attempt, error) {
	k := key{group: groupID, user: userID}
	if row, ok := s.lookup(k); ok {
		return row, nil
	}

	unlock := s.lockPair(k)
	defer unlock()

	if row, ok := s.lookup(k); ok {
		return row, nil
	}

	row := s.fresh(k)
	if err := s.commit(ctx, row); err != nil {
		return Attempt{}, err
	}

	s.logger.Debug("attempt record initialized",
		zap.Int64("group_id", groupID),
		zap.Int64("user_id", userID),
		zap.Int("remaining", row.Remaining))
	return s.mustLookup(k), nil
}

// Decrement consumes one attempt. It reports false, without mutating
// anything, when the pair is blocked or has no attempts left.
func (s *Service) Decrement(ctx context.Context, groupID, userID int64) (Attempt, bool, error) {
	k := key{group: groupID, user: userID}
	unlock := s.lockPair(k)
	defer unlock()

	row := s.current(k)
	if row.Blocked || row.Remaining <= 0 {
		return row, false, nil
	}

	row.Remaining--
	if err := s.commit(ctx, row); err != nil {
		return Attempt{}, false, err
	}

	return s.mustLookup(k), true, nil
}

// Set overwrites the remaining counter; negative values become zero.
func (s *Service) Set(ctx context.Context, groupID, userID int64, value int) (Attempt, error) {
	return s.mutate(ctx, groupID, userID, func(row *Attempt) {
		row.Remaining = max(value, 0)
	})
}

// Add shifts the remaining counter by delta, never below zero.
func (s *Service) Add(ctx context.Context, groupID, userID int64, delta int) (Attempt, error) {
	return s.mutate(ctx, groupID, userID, func(row *Attempt) {
		row.Remaining = max(row.Remaining+delta, 0)
	})
}

// Block sets or clears the blocked flag without touching the counter.
func (s *Service) Block(ctx context.Context, groupID, userID int64, blocked bool) (Attempt, error) {
	return s.mutate(ctx, groupID, userID, func(row *Attempt) {
		row.Blocked = blocked
	})
}

// ResetAll sets remaining to value for every known user of the group and
// returns how many records were reset.
func (s *Service) ResetAll(ctx context.Context, groupID int64, value int) (int, error) {
	unlock := s.groupLocks.Lock(groupID)
	defer unlock()

	value = max(value, 0)
	stamp := s.now()

	s.mu.RLock()
	batch := make([]Attempt, 0)
	for k, row := range s.rows {
		if k.group != groupID {
			continue
		}
		row.Remaining = value
		row.UpdatedAt = stamp
		batch = append(batch, row)
	}
	s.mu.RUnlock()

	if len(batch) == 0 {
		return 0, nil
	}

	if err := s.store.SaveAttempts(ctx, batch); err != nil {
		s.logger.Error("failed to persist attempt reset",
			zap.Error(err),
			zap.Int64("group_id", groupID))
		return 0, err
	}

	s.mu.Lock()
	for _, row := range batch {
		s.rows[keyOf(row)] = row
	}
	s.mu.Unlock()

	s.logger.Info("attempts reset",
		zap.Int64("group_id", groupID),
		zap.Int("records", len(batch)),
		zap.Int("value", value))
	return len(batch), nil
}

// ResetEveryGroup runs ResetAll for each group that has records, using
// valueFor to pick the budget.
func (s *Service) ResetEveryGroup(ctx context.Context, valueFor func(groupID int64) int) (int, error) {
	total := 0
	for _, groupID := range s.Groups() {
		n, err := s.ResetAll(ctx, groupID, valueFor(groupID))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// PurgeGroup deletes every record of the group.
func (s *Service) PurgeGroup(ctx context.Context, groupID int64) (int64, error) {
	unlock := s.groupLocks.Lock(groupID)
	defer unlock()

	deleted, err := s.store.DeleteGroupAttempts(ctx, groupID)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	for k := range s.rows {
		if k.group == groupID {
			delete(s.rows, k)
		}
	}
	s.mu.Unlock()

	s.logger.Info("attempt records purged",
		zap.Int64("group_id", groupID),
		zap.Int64("records", deleted))
	return deleted, nil
}

// Users lists the group's records ordered by user id.
func (s *Service) Users(groupID int64) []Attempt {
	s.mu.RLock()
	out := make([]Attempt, 0)
	for k, row := range s.rows {
		if k.group == groupID {
			out = append(out, row)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Groups lists the ids of groups that have at least one record.
func (s *Service) Groups() []int64 {
	s.mu.RLock()
	seen := make(map[int64]struct{})
	for k := range s.rows {
		seen[k.group] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]int64, 0, len(seen))
	for groupID := range seen {
		out = append(out, groupID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Peek returns the stored record without initializing it.
func (s *Service) Peek(groupID, userID int64) (Attempt, bool) {
	return s.lookup(key{group: groupID, user: userID})
}

func (s *Service) DefaultFor(groupID int64) int {
	if s.budget != nil {
		return max(s.budget.DefaultAttempts(groupID), 0)
	}
	return s.fallback
}

func (s *Service) mutate(ctx context.Context, groupID, userID int64, apply func(*Attempt)) (Attempt, error) {
	k := key{group: groupID, user: userID}
	unlock := s.lockPair(k)
	defer unlock()

	row := s.current(k)
	apply(&row)
	if err := s.commit(ctx, row); err != nil {
		return Attempt{}, err
	}
	return s.mustLookup(k), nil
}

func (s *Service) lockPair(k key) func() {
	releaseGroup := s.groupLocks.RLock(k.group)
	releasePair := s.pairLocks.Lock(k)
	return func() {
		releasePair()
		releaseGroup()
	}
}

func (s *Service) lookup(k key) (Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[k]
	return row, ok
}

func (s *Service) mustLookup(k key) Attempt {
	row, _ := s.lookup(k)
	return row
}

// current must be called with the pair lock held.
func (s *Service) current(k key) Attempt {
	if row, ok := s.lookup(k); ok {
		return row
	}
	return s.fresh(k)
}

func (s *Service) fresh(k key) Attempt {
	return Attempt{
		GroupID:   k.group,
		UserID:    k.user,
		Remaining: s.DefaultFor(k.group),
	}
}

// commit persists row and then publishes it; a failed save leaves memory
// untouched.
func (s *Service) commit(ctx context.Context, row Attempt) error {
	row.UpdatedAt = s.now()
	if err := s.store.SaveAttempt(ctx, row); err != nil {
		s.logger.Error("failed to persist attempt record",
			zap.Error(err),
			zap.Int64("group_id", row.GroupID),
			zap.Int64("user_id", row.UserID))
		return err
	}

	s.mu.Lock()
	s.rows[keyOf(row)] = row
	s.mu.Unlock()
	return nil
}
