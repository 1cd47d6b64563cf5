package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrInvalidSpec = errors.New("invalid reset schedule")

// Ledger is the bulk reset side of the attempt ledger.
type Ledger interface {
	ResetEveryGroup(ctx context.Context, valueFor func(groupID int64) int) (int, error)
}

// Budgets resolves the value each group is reset to.
type Budgets interface {
	DefaultAttempts(groupID int64) int
}

// Service runs the automatic global attempt reset on a cron schedule. The
// manual per-group reset lives on the admin surface and does not depend on
// this service.
type Service struct {
	cron    *cron.Cron
	entry   cron.EntryID
	ledger  Ledger
	budgets Budgets
	timeout time.Duration
	logger  *logging.Service
}

func New(attempts Ledger, budgets Budgets, spec string, loc *time.Location, logger *logging.Service) (*Service, error) {
	if loc == nil {
		loc = time.UTC
	}

	s := &Service{
		cron:    cron.New(cron.WithLocation(loc)),
		ledger:  attempts,
		budgets: budgets,
		timeout: time.Minute,
		logger:  logger,
	}

	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSpec, spec, err)
	}
	s.entry = id

	return s, nil
}

func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("daily attempt reset scheduled", zap.Time("next", s.Next()))
}

// Stop halts the cron and waits for a running reset until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next is the time of the next automatic reset; zero before Start.
func (s *Service) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunNow resets every group to its default budget.
func (s *Service) RunNow(ctx context.Context) (int, error) {
	n, err := s.ledger.ResetEveryGroup(ctx, s.budgets.DefaultAttempts)
	if err != nil {
		s.logger.Error("global attempt reset failed", zap.Error(err), zap.Int("records", n))
		return n, err
	}

	s.logger.Info("global attempt reset done", zap.Int("records", n))
	return n, nil
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunNow(ctx)
}
