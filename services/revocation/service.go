// Package revocation keeps the list of caller tokens withdrawn before their
// expiry.
package revocation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/zap"
)

var (
	ErrStoreNotConfigured = errors.New("revocation store not configured")
	ErrMissingTokenID     = errors.New("token has no id")
)

type Service struct {
	store  Store
	logger *logging.Service

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewService(store Store, logger *logging.Service) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

func (s *Service) RevokeToken(jti string, expiresAt time.Time) error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}
	if jti == "" {
		return ErrMissingTokenID
	}

	if err := s.store.RevokeToken(jti, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Info("token revoked", zap.String("jti", jti), zap.Time("expires_at", expiresAt))
	return nil
}

func (s *Service) IsTokenRevoked(jti string) (bool, error) {
	if s.store == nil {
		return false, ErrStoreNotConfigured
	}

	revoked, err := s.store.IsRevoked(jti)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation status: %w", err)
	}
	return revoked, nil
}

func (s *Service) CleanupExpiredTokens() error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}

	if _, err := s.store.CleanupExpiredTokens(); err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}
	return nil
}

// Load restores persisted revocations.
func (s *Service) Load() error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}
	if err := s.store.LoadFromDatabase(); err != nil {
		return fmt.Errorf("failed to load revoked tokens: %w", err)
	}
	return nil
}

// StartCleanupWorker prunes expired entries every interval until
// StopCleanupWorker is called. Starting twice is a no-op.
func (s *Service) StartCleanupWorker(interval time.Duration) {
	if s.store == nil || interval <= 0 {
		s.logger.Warn("revocation cleanup worker not started", zap.Duration("interval", interval))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.CleanupExpiredTokens(); err != nil {
					s.logger.Error("revocation cleanup failed", zap.Error(err))
				}
			}
		}
	}(s.stop, s.done)

	s.logger.Info("started revocation cleanup worker", zap.Duration("interval", interval))
}

func (s *Service) StopCleanupWorker() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
