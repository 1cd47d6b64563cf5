package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"go.uber.org/zap"
)

type Ledger interface {
	Get(ctx context.Context, groupID, userID int64) (ledger.Attempt, error)
	Decrement(ctx context.Context, groupID, userID int64) (ledger.Attempt, bool, error)
}

type Groups interface {
	Get(groupID int64) (registry.Group, bool)
}

type CodeSource interface {
	Current(secret string) (string, time.Duration, error)
}

// Notifier raises an operator alert for server-side faults.
type Notifier interface {
	NotifyFault(ctx context.Context, subject, body string) error
}

// Result describes a successful pass. The code itself is only ever sent
// to the user's private chat.
type Result struct {
	GroupID   int64         `json:"group_id"`
	UserID    int64         `json:"user_id"`
	Remaining int           `json:"remaining"`
	ValidFor  time.Duration `json:"valid_for"`
}

type Gate struct {
	ledger    Ledger
	groups    Groups
	codes     CodeSource
	transport transport.Transport
	notifier  Notifier
	logger    *logging.Service
}

func New(attempts Ledger, groups Groups, codes CodeSource, tr transport.Transport, notifier Notifier, logger *logging.Service) *Gate {
	return &Gate{
		ledger:    attempts,
		groups:    groups,
		codes:     codes,
		transport: tr,
		notifier:  notifier,
		logger:    logger,
	}
}

// Retrieve runs the access checks for userID in groupID and, when they
// pass, consumes one attempt and sends the current code privately.
//
// A delivery failure returns the Result together with ErrDelivery: the
// attempt stays consumed.
func (g *Gate) Retrieve(ctx context.Context, groupID, userID int64) (Result, error) {
	log := g.logger.With(zap.Int64("group_id", groupID), zap.Int64("user_id", userID))

	if !transport.IsGroupChat(groupID) {
		return Result{}, fmt.Errorf("%w: %d", registry.ErrInvalidGroupID, groupID)
	}

	record, err := g.ledger.Get(ctx, groupID, userID)
	if err != nil {
		log.Error("failed to load attempt record", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrRecording, err)
	}
	if record.Blocked {
		log.Info("retrieval denied, user blocked")
		return Result{}, ErrBlocked
	}
	if record.Remaining <= 0 {
		log.Info("retrieval denied, attempts exhausted")
		return Result{}, ErrAttemptsExhausted
	}

	group, ok := g.groups.Get(groupID)
	if !ok || !group.HasSecret() {
		log.Error("retrieval for a group without a usable secret", zap.Bool("known", ok))
		g.alert(ctx, "Code retrieval misconfigured",
			fmt.Sprintf("User %d requested a code for group %d, which is unknown or has no secret.", userID, groupID))
		return Result{}, ErrConfiguration
	}

	code, validFor, err := g.codes.Current(group.Secret)
	if err != nil {
		log.Error("code generation failed", zap.Error(err))
		g.alert(ctx, "Code generation failed",
			fmt.Sprintf("Generating a code for group %d failed: %v", groupID, err))
		return Result{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	record, consumed, err := g.ledger.Decrement(ctx, groupID, userID)
	if err != nil {
		log.Error("failed to record attempt", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrRecording, err)
	}
	if !consumed {
		log.Warn("attempt state changed during retrieval, discarding code",
			zap.Bool("blocked", record.Blocked),
			zap.Int("remaining", record.Remaining))
		return Result{}, ErrRecording
	}

	res := Result{
		GroupID:   groupID,
		UserID:    userID,
		Remaining: record.Remaining,
		ValidFor:  validFor,
	}

	if err := g.transport.SendPrivate(ctx, userID, CodeMessage(code, validFor, record.Remaining)); err != nil {
		log.Warn("private delivery failed, attempt stays consumed", zap.Error(err))
		g.fallback(ctx, log, groupID, userID)
		return res, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	log.Info("code delivered", zap.Int("remaining", record.Remaining))
	return res, nil
}

// CodeMessage is the private message carrying the code.
func CodeMessage(code string, validFor time.Duration, remaining int) string {
	return fmt.Sprintf("🔑 Your 2FA code: %s\nValid for %d more seconds.\nAttempts left: %d",
		code, int(validFor.Round(time.Second)/time.Second), remaining)
}

// FallbackMessage is posted in the group when the private message fails.
func FallbackMessage(userID int64) string {
	return fmt.Sprintf("📩 User %d, I could not send you the code privately. Start a private chat with me so the next one reaches you.", userID)
}

func (g *Gate) fallback(ctx context.Context, log *logging.Service, groupID, userID int64) {
	if err := g.transport.SendToGroup(ctx, groupID, FallbackMessage(userID), nil); err != nil {
		log.Warn("fallback group notice failed", zap.Error(err))
	}
}

func (g *Gate) alert(ctx context.Context, subject, body string) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.NotifyFault(ctx, subject, body); err != nil {
		g.logger.Warn("failed to raise fault alert", zap.Error(err))
	}
}
