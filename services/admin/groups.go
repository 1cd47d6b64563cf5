package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/scheduler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupView is a group as shown to admins: secret redacted, timer state
// attached.
type GroupView struct {
	registry.Group
	Timer *scheduler.Status `json:"timer,omitempty"`
}

func (s *Service) Groups(caller int64) ([]GroupView, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	statuses := make(map[int64]scheduler.Status)
	for _, st := range s.timers.Statuses() {
		statuses[st.GroupID] = st
	}

	groups := s.groups.List()
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		view := GroupView{Group: g.Redacted()}
		if st, ok := statuses[g.ID]; ok {
			view.Timer = &st
		}
		out = append(out, view)
	}
	return out, nil
}

// UpsertGroup creates or edits a group, then brings its timer in line.
// A timer failure is logged; the saved configuration stands.
func (s *Service) UpsertGroup(ctx context.Context, caller, groupID int64, upd registry.Update) (registry.Group, bool, error) {
	if err := s.authorize(caller); err != nil {
		return registry.Group{}, false, err
	}

	unlock := s.groupLocks.Lock(groupID)
	g, created, err := s.groups.Upsert(ctx, groupID, upd)
	if err != nil {
		unlock()
		return registry.Group{}, false, err
	}
	s.syncTimer(g)
	unlock()

	s.logger.Info("group saved",
		zap.Int64("caller", caller),
		zap.Int64("group_id", groupID),
		zap.Bool("created", created))
	return g.Redacted(), created, nil
}

// EditGroup applies a partial edit to an existing group.
func (s *Service) EditGroup(ctx context.Context, caller, groupID int64, upd registry.Update) (registry.Group, error) {
	if err := s.authorize(caller); err != nil {
		return registry.Group{}, err
	}
	if _, ok := s.groups.Get(groupID); !ok {
		return registry.Group{}, fmt.Errorf("%w: %d", registry.ErrUnknownGroup, groupID)
	}

	g, _, err := s.UpsertGroup(ctx, caller, groupID, upd)
	return g, err
}

func (s *Service) SetCadence(ctx context.Context, caller, groupID int64, minutes int) (registry.Group, error) {
	return s.EditGroup(ctx, caller, groupID, registry.Update{Cadence: &minutes})
}

func (s *Service) SetStyle(ctx context.Context, caller, groupID int64, style presentation.Style) (registry.Group, error) {
	return s.EditGroup(ctx, caller, groupID, registry.Update{Style: &style})
}

func (s *Service) SetTimezone(ctx context.Context, caller, groupID int64, timezone string) (registry.Group, error) {
	return s.EditGroup(ctx, caller, groupID, registry.Update{Timezone: &timezone})
}

func (s *Service) SetSecret(ctx context.Context, caller, groupID int64, secret string) (registry.Group, error) {
	return s.EditGroup(ctx, caller, groupID, registry.Update{Secret: &secret})
}

func (s *Service) SetDefaultAttempts(ctx context.Context, caller, groupID int64, attempts int) (registry.Group, error) {
	return s.EditGroup(ctx, caller, groupID, registry.Update{DefaultAttempts: &attempts})
}

func (s *Service) PauseGroup(ctx context.Context, caller, groupID int64) (registry.Group, error) {
	active := false
	return s.EditGroup(ctx, caller, groupID, registry.Update{Active: &active})
}

// ResumeGroup reactivates a group. The timer resumes at its stored cadence
// or is recreated when none survived.
func (s *Service) ResumeGroup(ctx context.Context, caller, groupID int64) (registry.Group, error) {
	if err := s.authorize(caller); err != nil {
		return registry.Group{}, err
	}
	if _, ok := s.groups.Get(groupID); !ok {
		return registry.Group{}, fmt.Errorf("%w: %d", registry.ErrUnknownGroup, groupID)
	}

	unlock := s.groupLocks.Lock(groupID)
	active := true
	g, _, err := s.groups.Upsert(ctx, groupID, registry.Update{Active: &active})
	if err != nil {
		unlock()
		return registry.Group{}, err
	}
	if err := s.timers.Resume(groupID); err != nil {
		s.logger.Error("failed to resume timer, configuration kept",
			zap.Int64("group_id", groupID),
			zap.Error(err))
	}
	unlock()

	s.logger.Info("group resumed", zap.Int64("caller", caller), zap.Int64("group_id", groupID))
	return g.Redacted(), nil
}

// RequestDelete is the first step of a group deletion. It returns a token
// that only the same admin can confirm before it expires.
func (s *Service) RequestDelete(ctx context.Context, caller, groupID int64) (Confirmation, error) {
	if err := s.authorize(caller); err != nil {
		return Confirmation{}, err
	}
	if _, ok := s.groups.Get(groupID); !ok {
		return Confirmation{}, fmt.Errorf("%w: %d", registry.ErrUnknownGroup, groupID)
	}

	now := s.now()
	c := Confirmation{
		Token:       uuid.NewString(),
		GroupID:     groupID,
		RequestedBy: caller,
		ExpiresAt:   now.Add(s.opts.ConfirmTTL),
	}

	s.pendingMu.Lock()
	s.pruneLocked(now)
	s.pending[c.Token] = c
	s.pendingMu.Unlock()

	s.logger.Info("group deletion requested",
		zap.Int64("caller", caller),
		zap.Int64("group_id", groupID))
	return c, nil
}

// ConfirmDelete is the second step: it removes the group together with its
// attempt records, then cancels the timer. A failed removal leaves both the
// group and its timer in place.
func (s *Service) ConfirmDelete(ctx context.Context, caller int64, token string) (int64, error) {
	if err := s.authorize(caller); err != nil {
		return 0, err
	}

	c, err := s.takeConfirmation(caller, token)
	if err != nil {
		return 0, err
	}

	unlock := s.groupLocks.Lock(c.GroupID)
	removed, err := s.groups.Remove(ctx, c.GroupID)
	if removed {
		s.timers.Remove(c.GroupID)
	}
	unlock()

	if err != nil {
		if removed {
			s.logger.Error("group removed but its attempt records were not purged",
				zap.Int64("group_id", c.GroupID),
				zap.Error(err))
			return c.GroupID, nil
		}
		return 0, err
	}
	if !removed {
		return 0, fmt.Errorf("%w: %d", registry.ErrUnknownGroup, c.GroupID)
	}

	s.logger.Info("group deleted",
		zap.Int64("caller", caller),
		zap.Int64("group_id", c.GroupID))
	return c.GroupID, nil
}

// CancelDelete drops a pending confirmation.
func (s *Service) CancelDelete(caller int64, token string) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	_, err := s.takeConfirmation(caller, token)
	return err
}

func (s *Service) takeConfirmation(caller int64, token string) (Confirmation, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	c, ok := s.pending[token]
	if !ok || c.RequestedBy != caller {
		return Confirmation{}, ErrConfirmationNotFound
	}
	delete(s.pending, token)

	if c.expired(s.now()) {
		return Confirmation{}, ErrConfirmationNotFound
	}
	return c, nil
}

func (s *Service) pruneLocked(now time.Time) {
	for token, c := range s.pending {
		if c.expired(now) {
			delete(s.pending, token)
		}
	}
}

func (s *Service) syncTimer(g registry.Group) {
	if err := s.timers.Sync(g); err != nil {
		s.logger.Error("failed to sync timer, configuration kept",
			zap.Int64("group_id", g.ID),
			zap.Error(err))
	}
}
