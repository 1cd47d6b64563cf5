package scheduler

import (
	"context"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"go.uber.org/zap"
)

// fire posts one prompt to the group. Every failure is logged and
// swallowed; the timer keeps running.
func (s *Scheduler) fire(t *timer, minutes int) {
	log := s.logger.With(zap.Int64("group_id", t.groupID), zap.String("handle", t.handle))

	defer func() {
		if r := recover(); r != nil {
			log.Error("firing panicked", zap.Any("panic", r))
		}
	}()

	g, ok := s.source.Get(t.groupID)
	if !ok {
		log.Warn("firing for a group that is no longer registered")
		return
	}
	if !g.HasSecret() {
		log.Warn("firing for a group without a secret, skipping")
		return
	}

	loc, err := presentation.ResolveLocation(g.Timezone)
	if err != nil {
		log.Warn("invalid group timezone, rendering in UTC",
			zap.String("timezone", g.Timezone),
			zap.Error(err))
		loc = time.UTC
	}

	text, err := s.renderer.Render(g.Style, presentation.Timing{
		Now:      s.now(),
		Cadence:  time.Duration(minutes) * time.Minute,
		Location: loc,
	})
	if err != nil {
		log.Error("failed to render prompt", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.sendTimeout)
	defer cancel()

	affordance := &transport.Affordance{
		Label:   s.buttonLabel,
		Payload: transport.RetrievePayload(g.ID),
	}
	if err := s.transport.SendToGroup(ctx, g.ID, text, affordance); err != nil {
		log.Error("failed to post prompt", zap.Error(err))
		return
	}

	t.fired.Add(1)
	t.lastFired.Store(s.now().UnixNano())
	log.Debug("prompt posted", zap.Int("cadence", minutes))
}
