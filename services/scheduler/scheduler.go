package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrStopped            = errors.New("scheduler is stopped")
	ErrInvalidCadence     = errors.New("cadence must be positive")
)

type State string

const (
	StateScheduled State = "scheduled"
	StatePaused    State = "paused"
)

// GroupSource is the read side of the group registry.
type GroupSource interface {
	Get(groupID int64) (registry.Group, bool)
	Active() []registry.Group
}

// Status is a point-in-time view of one group's timer.
type Status struct {
	GroupID   int64         `json:"group_id"`
	Handle    string        `json:"handle"`
	State     State         `json:"state"`
	Cadence   time.Duration `json:"cadence"`
	Fired     int64         `json:"fired"`
	LastFired time.Time     `json:"last_fired,omitempty"`
}

type timer struct {
	groupID int64
	handle  string
	minutes int
	state   State
	stop    chan struct{}
	done    chan struct{}

	fired     atomic.Int64
	lastFired atomic.Int64
}

// Scheduler owns one recurring timer per active group. Timer transitions
// are serialized by mu; firings run on their own goroutines and never hold
// mu, so a slow transport cannot stall pause or remove.
type Scheduler struct {
	source      GroupSource
	transport   transport.Transport
	renderer    *presentation.Service
	logger      *logging.Service
	unit        time.Duration
	sendTimeout time.Duration
	buttonLabel string
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timers  map[int64]*timer
	stopped bool
	firing  sync.WaitGroup
}

func New(source GroupSource, tr transport.Transport, renderer *presentation.Service, logger *logging.Service, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		source:      source,
		transport:   tr,
		renderer:    renderer,
		logger:      logger,
		unit:        time.Minute,
		sendTimeout: 15 * time.Second,
		buttonLabel: "Get code",
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		timers:      make(map[int64]*timer),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start arms a timer for every active group.
func (s *Scheduler) Start(ctx context.Context) (int, error) {
	armed := 0
	for _, g := range s.source.Active() {
		if err := s.Schedule(g); err != nil {
			s.logger.Error("failed to arm timer on start",
				zap.Error(err),
				zap.Int64("group_id", g.ID))
			continue
		}
		armed++
	}

	s.logger.Info("scheduler started", zap.Int("timers", armed))
	return armed, nil
}

// Stop halts every timer and waits for in-flight firings until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for _, t := range s.timers {
		if t.state == StateScheduled {
			s.halt(t)
			t.state = StatePaused
		}
	}
	s.mu.Unlock()

	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.firing.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with firings in flight")
		return ctx.Err()
	}
}

// Schedule creates the group's timer or reschedules the existing one to the
// group's cadence, keeping its handle.
func (s *Scheduler) Schedule(g registry.Group) error {
	if g.Cadence <= 0 {
		return fmt.Errorf("%w: group %d has cadence %d", ErrInvalidCadence, g.ID, g.Cadence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	if t, ok := s.timers[g.ID]; ok {
		if t.state == StateScheduled {
			s.halt(t)
		}
		previous := t.minutes
		t.minutes = g.Cadence
		s.arm(t)
		s.logger.Info("timer rescheduled",
			zap.Int64("group_id", g.ID),
			zap.String("handle", t.handle),
			zap.Int("previous_cadence", previous),
			zap.Int("cadence", g.Cadence))
		return nil
	}

	handle := g.Handle
	if handle == "" {
		handle = uuid.NewString()
	}
	t := &timer{groupID: g.ID, handle: handle, minutes: g.Cadence}
	s.timers[g.ID] = t
	s.arm(t)

	s.logger.Info("timer created",
		zap.Int64("group_id", g.ID),
		zap.String("handle", handle),
		zap.Int("cadence", g.Cadence))
	return nil
}

// Reschedule moves an existing timer to a new cadence, taking the rest of
// the configuration from the registry. A missing timer is a scheduling
// conflict that is recovered by creating one.
func (s *Scheduler) Reschedule(groupID int64, cadence int) error {
	s.mu.Lock()
	_, exists := s.timers[groupID]
	s.mu.Unlock()

	g, ok := s.source.Get(groupID)
	if !ok {
		return fmt.Errorf("%w: %d", registry.ErrUnknownGroup, groupID)
	}
	g.Cadence = cadence

	if !exists {
		s.logger.Warn("reschedule without a timer, creating one",
			zap.Error(ErrSchedulingConflict),
			zap.Int64("group_id", groupID))
	}
	return s.Schedule(g)
}

// Pause stops firing without forgetting the timer. When Pause returns no
// new firing will start; one already in flight may still complete.
func (s *Scheduler) Pause(groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[groupID]
	if !ok {
		s.logger.Debug("pause requested for group without timer", zap.Int64("group_id", groupID))
		return nil
	}
	if t.state == StatePaused {
		return nil
	}

	s.halt(t)
	t.state = StatePaused
	s.logger.Info("timer paused",
		zap.Int64("group_id", groupID),
		zap.String("handle", t.handle))
	return nil
}

// Resume restarts a paused timer with its stored cadence. Without a timer
// (e.g. after a restart) one is created from the registry instead.
func (s *Scheduler) Resume(groupID int64) error {
	s.mu.Lock()
	t, ok := s.timers[groupID]
	if ok {
		defer s.mu.Unlock()
		if s.stopped {
			return ErrStopped
		}
		if t.state == StateScheduled {
			return nil
		}
		s.arm(t)
		s.logger.Info("timer resumed",
			zap.Int64("group_id", groupID),
			zap.String("handle", t.handle),
			zap.Int("cadence", t.minutes))
		return nil
	}
	s.mu.Unlock()

	g, found := s.source.Get(groupID)
	if !found {
		return fmt.Errorf("%w: %d", registry.ErrUnknownGroup, groupID)
	}

	s.logger.Debug("no suspended timer to resume, creating one",
		zap.Error(ErrSchedulingConflict),
		zap.Int64("group_id", groupID))
	return s.Schedule(g)
}

// Remove cancels and forgets the group's timer. A missing timer is fine.
func (s *Scheduler) Remove(groupID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[groupID]
	if !ok {
		return false
	}
	if t.state == StateScheduled {
		s.halt(t)
	}
	delete(s.timers, groupID)

	s.logger.Info("timer removed",
		zap.Int64("group_id", groupID),
		zap.String("handle", t.handle))
	return true
}

// Sync brings the timer in line with the group's configuration. An
// inactive group's timer is paused but still records the new cadence, so a
// later Resume fires at the edited interval.
func (s *Scheduler) Sync(g registry.Group) error {
	if !g.Active {
		if err := s.Pause(g.ID); err != nil {
			return err
		}
		if g.Cadence > 0 {
			s.mu.Lock()
			if t, ok := s.timers[g.ID]; ok {
				t.minutes = g.Cadence
			}
			s.mu.Unlock()
		}
		return nil
	}

	s.mu.Lock()
	t, ok := s.timers[g.ID]
	unchanged := ok && t.state == StateScheduled && t.minutes == g.Cadence
	s.mu.Unlock()

	switch {
	case unchanged:
		return nil
	case ok:
		return s.Reschedule(g.ID, g.Cadence)
	default:
		return s.Schedule(g)
	}
}

func (s *Scheduler) Status(groupID int64) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[groupID]
	if !ok {
		return Status{}, false
	}
	return s.statusOf(t), true
}

// Statuses lists every known timer ordered by group id.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	out := make([]Status, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, s.statusOf(t))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}

// Live counts timers that are currently firing.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if t.state == StateScheduled {
			n++
		}
	}
	return n
}

func (s *Scheduler) statusOf(t *timer) Status {
	st := Status{
		GroupID: t.groupID,
		Handle:  t.handle,
		State:   t.state,
		Cadence: time.Duration(t.minutes) * time.Minute,
		Fired:   t.fired.Load(),
	}
	if last := t.lastFired.Load(); last > 0 {
		st.LastFired = time.Unix(0, last)
	}
	return st
}

// arm starts the timer loop; mu must be held.
func (s *Scheduler) arm(t *timer) {
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.state = StateScheduled
	go s.run(t, t.minutes, time.Duration(t.minutes)*s.unit, t.stop, t.done)
}

// halt stops the timer loop and waits for it to exit; mu must be held. The
// loop never takes mu, so waiting here cannot deadlock.
func (s *Scheduler) halt(t *timer) {
	close(t.stop)
	<-t.done
}

func (s *Scheduler) run(t *timer, minutes int, period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}

			s.firing.Add(1)
			go func() {
				defer s.firing.Done()
				s.fire(t, minutes)
			}()
		}
	}
}
