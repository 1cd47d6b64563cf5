package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/internal/keylock"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/scheduler"
	"go.uber.org/zap"
)

var (
	ErrNotAdmin             = errors.New("caller is not an admin")
	ErrLastAdmin            = errors.New("cannot remove the last admin")
	ErrProtectedAdmin       = errors.New("the seed admin cannot be removed")
	ErrUnknownUser          = errors.New("unknown user")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrConfirmationNotFound = errors.New("confirmation not found or expired")
)

// Timers is the part of the scheduler the admin surface drives.
type Timers interface {
	Sync(g registry.Group) error
	Resume(groupID int64) error
	Remove(groupID int64) bool
	Statuses() []scheduler.Status
}

type Options struct {
	SeedID      int64
	ProtectSeed bool
	ConfirmTTL  time.Duration
}

// Service is the admin control surface. Every mutating call re-checks the
// caller against the current admin set. A group's registry write and the
// matching timer change happen under one per-group lock, so the timer
// always follows the last saved configuration.
type Service struct {
	store    Store
	groups   *registry.Service
	attempts *ledger.Service
	timers   Timers
	opts     Options
	logger   *logging.Service
	now      func() time.Time

	mu     sync.RWMutex
	admins map[int64]Admin

	pendingMu sync.Mutex
	pending   map[string]Confirmation

	groupLocks *keylock.Map[int64]
}

func NewService(store Store, groups *registry.Service, attempts *ledger.Service, timers Timers, opts Options, logger *logging.Service) *Service {
	if opts.ConfirmTTL <= 0 {
		opts.ConfirmTTL = 2 * time.Minute
	}

	return &Service{
		store:    store,
		groups:   groups,
		attempts: attempts,
		timers:   timers,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		admins:   make(map[int64]Admin),
		pending:  make(map[string]Confirmation),

		groupLocks: keylock.New[int64](),
	}
}

// Load reads the admin set and makes sure the seed admin is part of it.
func (s *Service) Load(ctx context.Context) error {
	loaded, err := s.store.LoadAdmins(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.admins = make(map[int64]Admin, len(loaded))
	for _, a := range loaded {
		s.admins[a.UserID] = a
	}
	s.mu.Unlock()

	if s.opts.SeedID > 0 {
		if err := s.Seed(ctx, s.opts.SeedID); err != nil {
			return err
		}
	}

	s.logger.Info("admin set loaded", zap.Int("admins", len(s.Admins())))
	return nil
}

// Seed adds admins without a caller check. It is meant for boot time.
func (s *Service) Seed(ctx context.Context, userIDs ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range userIDs {
		if id <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidUserID, id)
		}
		if _, ok := s.admins[id]; ok {
			continue
		}
		a := Admin{UserID: id, CreatedAt: s.now()}
		if err := s.store.SaveAdmin(ctx, a); err != nil {
			return err
		}
		s.admins[id] = a
		s.logger.Info("admin seeded", zap.Int64("user_id", id))
	}
	return nil
}

func (s *Service) IsAdmin(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[userID]
	return ok
}

func (s *Service) Admins() []Admin {
	s.mu.RLock()
	out := make([]Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// AddAdmin grants admin rights to userID. Adding an existing admin is a
// no-op that reports created=false.
func (s *Service) AddAdmin(ctx context.Context, caller, userID int64) (Admin, bool, error) {
	if userID <= 0 {
		return Admin{}, false, fmt.Errorf("%w: %d", ErrInvalidUserID, userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[caller]; !ok {
		return Admin{}, false, ErrNotAdmin
	}
	if existing, ok := s.admins[userID]; ok {
		return existing, false, nil
	}

	a := Admin{UserID: userID, AddedBy: caller, CreatedAt: s.now()}
	if err := s.store.SaveAdmin(ctx, a); err != nil {
		return Admin{}, false, err
	}
	s.admins[userID] = a

	s.logger.Info("admin added",
		zap.Int64("caller", caller),
		zap.Int64("user_id", userID))
	return a, true, nil
}

// RemoveAdmin revokes admin rights. The check that the set stays non-empty
// and the removal happen under one lock.
func (s *Service) RemoveAdmin(ctx context.Context, caller, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[caller]; !ok {
		return ErrNotAdmin
	}
	if _, ok := s.admins[userID]; !ok {
		return fmt.Errorf("%w: %d is not an admin", ErrUnknownUser, userID)
	}
	if len(s.admins) <= 1 {
		return ErrLastAdmin
	}
	if s.opts.ProtectSeed && userID == s.opts.SeedID {
		return ErrProtectedAdmin
	}

	if err := s.store.DeleteAdmin(ctx, userID); err != nil {
		return err
	}
	delete(s.admins, userID)

	s.logger.Info("admin removed",
		zap.Int64("caller", caller),
		zap.Int64("user_id", userID))
	return nil
}

func (s *Service) authorize(caller int64) error {
	if !s.IsAdmin(caller) {
		s.logger.Warn("admin operation refused", zap.Int64("caller", caller))
		return ErrNotAdmin
	}
	return nil
}
