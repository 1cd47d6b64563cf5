package revocation

import (
	"sync"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RevokedToken is the persisted row for one revoked caller token, keyed by
// its JWT id.
type RevokedToken struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	JTI       string    `json:"jti" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

type Store interface {
	RevokeToken(jti string, expiresAt time.Time) error

	IsRevoked(jti string) (bool, error)

	// CleanupExpiredTokens drops entries whose token would be rejected for
	// expiry anyway and reports how many were removed.
	CleanupExpiredTokens() (int, error)

	LoadFromDatabase() error
}

// MemoryStore answers lookups from memory. With a database attached every
// revocation is written through, so the list survives restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	db     *gorm.DB
	logger *logging.Service
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithDB(nil, nil)
}

func NewMemoryStoreWithDB(db *gorm.DB, logger *logging.Service) *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (m *MemoryStore) RevokeToken(jti string, expiresAt time.Time) error {
	if m.db != nil {
		row := RevokedToken{JTI: jti, ExpiresAt: expiresAt}
		err := m.db.Where(RevokedToken{JTI: jti}).
			Assign(RevokedToken{ExpiresAt: expiresAt}).
			FirstOrCreate(&row).Error
		if err != nil {
			m.logger.Error("failed to save revoked token", zap.String("jti", jti), zap.Error(err))
			return err
		}
	}

	m.mu.Lock()
	m.tokens[jti] = expiresAt
	total := len(m.tokens)
	m.mu.Unlock()

	m.logger.Debug("token added to revocation list",
		zap.String("jti", jti),
		zap.Time("expires_at", expiresAt),
		zap.Int("revoked_tokens", total))

	return nil
}

func (m *MemoryStore) IsRevoked(jti string) (bool, error) {
	m.mu.RLock()
	expiresAt, exists := m.tokens[jti]
	m.mu.RUnlock()

	if !exists {
		return false, nil
	}

	// An expired entry no longer matters: the token fails validation on its
	// own expiry before it gets here.
	return m.now().Before(expiresAt), nil
}

func (m *MemoryStore) CleanupExpiredTokens() (int, error) {
	now := m.now()

	if m.db != nil {
		if err := m.db.Where("expires_at <= ?", now).Delete(&RevokedToken{}).Error; err != nil {
			m.logger.Error("failed to clean expired tokens from database", zap.Error(err))
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for jti, expiresAt := range m.tokens {
		if !now.Before(expiresAt) {
			delete(m.tokens, jti)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("cleaned up expired tokens",
			zap.Int("expired_count", removed),
			zap.Int("remaining_tokens", len(m.tokens)))
	}

	return removed, nil
}

func (m *MemoryStore) LoadFromDatabase() error {
	if m.db == nil {
		return nil
	}

	var rows []RevokedToken
	if err := m.db.Where("expires_at > ?", m.now()).Find(&rows).Error; err != nil {
		m.logger.Error("failed to load revoked tokens", zap.Error(err))
		return err
	}

	m.mu.Lock()
	for _, row := range rows {
		m.tokens[row.JTI] = row.ExpiresAt
	}
	total := len(m.tokens)
	m.mu.Unlock()

	m.logger.Info("revoked tokens loaded from database",
		zap.Int("loaded_count", len(rows)),
		zap.Int("revoked_tokens", total))

	return nil
}
