package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/internal/keylock"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/totp"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownGroup    = errors.New("unknown group")
	ErrInvalidGroupID  = errors.New("group id is not a group or channel chat")
	ErrInvalidCadence  = errors.New("cadence must be a positive number of minutes")
	ErrInvalidStyle    = errors.New("invalid presentation style")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidAttempts = errors.New("default attempts must not be negative")
	ErrInvalidSecret   = totp.ErrInvalidSecret
)

// Defaults fill the fields a newly registered group does not specify.
type Defaults struct {
	Cadence  int
	Style    presentation.Style
	Timezone string
	Attempts int
}

// Purger removes the attempt records of a deleted group.
type Purger interface {
	PurgeGroup(ctx context.Context, groupID int64) (int64, error)
}

// Service is the group registry: the single source of truth for which groups
// exist and how they behave. Writes to one group are serialized; the group
// map itself is only locked around in-memory reads and writes.
type Service struct {
	store    Store
	defaults Defaults
	purger   Purger
	logger   *logging.Service
	now      func() time.Time

	mu     sync.RWMutex
	groups map[int64]Group

	locks *keylock.Map[int64]
}

func NewService(store Store, defaults Defaults, logger *logging.Service) *Service {
	if !defaults.Style.Valid() {
		defaults.Style = presentation.StyleFull
	}
	if defaults.Cadence <= 0 {
		defaults.Cadence = 10
	}

	return &Service{
		store:    store,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
		groups:   make(map[int64]Group),
		locks:    keylock.New[int64](),
	}
}

// SetPurger installs the cascade target for Remove.
func (s *Service) SetPurger(p Purger) {
	s.purger = p
}

func (s *Service) Load(ctx context.Context) error {
	groups, err := s.store.LoadGroups(ctx)
	if err != nil {
		return err
	}

	loaded := make(map[int64]Group, len(groups))
	for _, g := range groups {
		loaded[g.ID] = g
	}

	s.mu.Lock()
	s.groups = loaded
	s.mu.Unlock()

	s.logger.Info("group registry loaded", zap.Int("groups", len(loaded)))
	return nil
}

// Upsert creates the group or applies a partial edit to it. Validation runs
// before anything is written, so a rejected edit leaves the stored record
// unchanged.
func (s *Service) Upsert(ctx context.Context, groupID int64, upd Update) (Group, bool, error) {
	if err := s.validate(groupID, upd); err != nil {
		s.logger.Warn("group update rejected",
			zap.Int64("group_id", groupID),
			zap.Error(err))
		return Group{}, false, err
	}

	unlock := s.locks.Lock(groupID)
	defer unlock()

	prior, exists := s.Get(groupID)
	if !exists && upd.Secret == nil {
		return Group{}, false, fmt.Errorf("%w: a new group needs a secret", ErrInvalidSecret)
	}

	next := prior
	if !exists {
		next = Group{
			ID:       groupID,
			Cadence:  s.defaults.Cadence,
			Style:    s.defaults.Style,
			Timezone: s.defaults.Timezone,
			Active:   true,
			Handle:   uuid.NewString(),
		}
	}
	apply(&next, upd)
	next.UpdatedAt = s.now()
	if !exists {
		next.CreatedAt = next.UpdatedAt
	}

	if err := s.store.SaveGroup(ctx, next); err != nil {
		s.logger.Error("failed to persist group",
			zap.Error(err),
			zap.Int64("group_id", groupID))
		return Group{}, false, err
	}

	s.mu.Lock()
	s.groups[groupID] = next
	s.mu.Unlock()

	s.logger.Info("group saved",
		zap.Int64("group_id", groupID),
		zap.Bool("created", !exists),
		zap.Int("cadence", next.Cadence),
		zap.String("style", string(next.Style)),
		zap.String("timezone", next.Timezone),
		zap.Bool("active", next.Active))
	return next, !exists, nil
}

// Remove deletes the group and cascades to its attempt records. It reports
// false when the group is unknown.
func (s *Service) Remove(ctx context.Context, groupID int64) (bool, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()

	if _, exists := s.Get(groupID); !exists {
		return false, nil
	}

	if _, err := s.store.DeleteGroup(ctx, groupID); err != nil {
		s.logger.Error("failed to delete group",
			zap.Error(err),
			zap.Int64("group_id", groupID))
		return false, err
	}

	s.mu.Lock()
	delete(s.groups, groupID)
	s.mu.Unlock()

	if s.purger != nil {
		if _, err := s.purger.PurgeGroup(ctx, groupID); err != nil {
			s.logger.Error("group deleted but its attempt records were not purged",
				zap.Error(err),
				zap.Int64("group_id", groupID))
			return true, fmt.Errorf("failed to purge attempts of group %d: %w", groupID, err)
		}
	}

	s.logger.Info("group removed", zap.Int64("group_id", groupID))
	return true, nil
}

func (s *Service) Get(groupID int64) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	return g, ok
}

// List returns every group ordered by id.
func (s *Service) List() []Group {
	s.mu.RLock()
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns the groups that must have a live timer.
func (s *Service) Active() []Group {
	all := s.List()
	out := all[:0]
	for _, g := range all {
		if g.Active {
			out = append(out, g)
		}
	}
	return out
}

// DefaultAttempts resolves the budget new users of the group start with.
func (s *Service) DefaultAttempts(groupID int64) int {
	if g, ok := s.Get(groupID); ok && g.DefaultAttempts > 0 {
		return g.DefaultAttempts
	}
	return s.defaults.Attempts
}

func (s *Service) Defaults() Defaults {
	return s.defaults
}

func (s *Service) validate(groupID int64, upd Update) error {
	if !transport.IsGroupChat(groupID) {
		return fmt.Errorf("%w: %d", ErrInvalidGroupID, groupID)
	}
	if upd.Cadence != nil && *upd.Cadence <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCadence, *upd.Cadence)
	}
	if upd.Style != nil && !upd.Style.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStyle, *upd.Style)
	}
	if upd.Timezone != nil {
		if _, err := presentation.ResolveLocation(*upd.Timezone); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTimezone, err)
		}
	}
	if upd.DefaultAttempts != nil && *upd.DefaultAttempts < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAttempts, *upd.DefaultAttempts)
	}
	if upd.Secret != nil {
		if err := totp.ValidateSecret(*upd.Secret); err != nil {
			return err
		}
	}
	return nil
}

func apply(g *Group, upd Update) {
	if upd.Secret != nil {
		g.Secret = totp.NormalizeSecret(*upd.Secret)
	}
	if upd.Cadence != nil {
		g.Cadence = *upd.Cadence
	}
	if upd.Style != nil {
		g.Style = *upd.Style
	}
	if upd.Timezone != nil {
		g.Timezone = *upd.Timezone
	}
	if upd.Active != nil {
		g.Active = *upd.Active
	}
	if upd.DefaultAttempts != nil {
		g.DefaultAttempts = *upd.DefaultAttempts
	}
}
