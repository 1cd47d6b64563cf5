package admin

import (
	"context"
	"fmt"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"go.uber.org/zap"
)

// Users lists the attempt records of a group.
func (s *Service) Users(caller, groupID int64) ([]ledger.Attempt, error) {
	if err := s.authorizeGroup(caller, groupID); err != nil {
		return nil, err
	}
	return s.attempts.Users(groupID), nil
}

// User returns one attempt record without creating it.
func (s *Service) User(caller, groupID, userID int64) (ledger.Attempt, error) {
	if err := s.authorizeGroup(caller, groupID); err != nil {
		return ledger.Attempt{}, err
	}
	row, ok := s.attempts.Peek(groupID, userID)
	if !ok {
		return ledger.Attempt{}, fmt.Errorf("%w: %d in group %d", ErrUnknownUser, userID, groupID)
	}
	return row, nil
}

func (s *Service) SetAttempts(ctx context.Context, caller, groupID, userID int64, value int) (ledger.Attempt, error) {
	if err := s.authorizeGroup(caller, groupID); err != nil {
		return ledger.Attempt{}, err
	}

	row, err := s.attempts.Set(ctx, groupID, userID, value)
	if err != nil {
		return ledger.Attempt{}, err
	}
	s.logAttempt("attempts set", caller, row)
	return row, nil
}

// AddAttempts adjusts the counter by delta; a negative delta removes
// attempts down to zero.
func (s *Service) AddAttempts(ctx context.Context, caller, groupID, userID int64, delta int) (ledger.Attempt, error) {
	if err := s.authorizeGroup(caller, groupID); err != nil {
		return ledger.Attempt{}, err
	}

	row, err := s.attempts.Add(ctx, groupID, userID, delta)
	if err != nil {
		return ledger.Attempt{}, err
	}
	s.logAttempt("attempts adjusted", caller, row, zap.Int("delta", delta))
	return row, nil
}

func (s *Service) Block(ctx context.Context, caller, groupID, userID int64) (ledger.Attempt, error) {
	return s.setBlocked(ctx, caller, groupID, userID, true)
}

func (s *Service) Unblock(ctx context.Context, caller, groupID, userID int64) (ledger.Attempt, error) {
	return s.setBlocked(ctx, caller, groupID, userID, false)
}

// ResetGroup restores every known user of the group to value, or to the
// group's default budget when value is nil.
func (s *Service) ResetGroup(ctx context.Context, caller, groupID int64, value *int) (int, error) {
	if err := s.authorizeGroup(caller, groupID); err != nil {
		return 0, err
	}

	target := s.groups.DefaultAttempts(groupID)
	if value != nil {
		target = *value
	}

	n, err := s.attempts.ResetAll(ctx, groupID, target)
	if err != nil {
		return n, err
	}

	s.logger.Info("group attempts reset",
		zap.Int64("caller", caller),
		zap.Int64("group_id", groupID),
		zap.Int("value", target),
		zap.Int("records", n))
	return n, nil
}

func (s *Service) setBlocked(ctx context.Context, caller, groupID, userID int64, blocked bool) (ledger.Attempt, error) {
	if err := s.authorizeGroup(caller, groupID); err != nil {
		return ledger.Attempt{}, err
	}

	row, err := s.attempts.Block(ctx, groupID, userID, blocked)
	if err != nil {
		return ledger.Attempt{}, err
	}
	s.logAttempt("block flag changed", caller, row)
	return row, nil
}

func (s *Service) authorizeGroup(caller, groupID int64) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if _, ok := s.groups.Get(groupID); !ok {
		return fmt.Errorf("%w: %d", registry.ErrUnknownGroup, groupID)
	}
	return nil
}

func (s *Service) logAttempt(msg string, caller int64, row ledger.Attempt, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.Int64("caller", caller),
		zap.Int64("group_id", row.GroupID),
		zap.Int64("user_id", row.UserID),
		zap.Int("remaining", row.Remaining),
		zap.Bool("blocked", row.Blocked),
	}, extra...)
	s.logger.Info(msg, fields...)
}
