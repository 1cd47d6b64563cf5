package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrExpiredToken     = errors.New("JWT token has expired")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
	ErrInvalidSubject   = errors.New("JWT token subject is not a user id")
	ErrMissingKey       = errors.New("JWT_SECRET_KEY is not configured")
	ErrTokenRevoked     = errors.New("JWT token has been revoked")
	ErrNoRevocation     = errors.New("token revocation is not enabled")
)

// Claims identify the caller of an inbound request. The subject is the
// Telegram user id of the caller.
type Claims struct {
	UserID int64  `json:"user_id"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// RevocationService tracks tokens withdrawn before their expiry, by JWT id.
type RevocationService interface {
	IsTokenRevoked(jti string) (bool, error)
	RevokeToken(jti string, expiresAt time.Time) error
}

type Service struct {
	config            *config.Config
	logger            *logging.Service
	revocationService RevocationService
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
	}
}

func (s *Service) SetRevocationService(revocationService RevocationService) {
	s.revocationService = revocationService
}

func (s *Service) GetAccessExpirySeconds() int {
	return int(s.config.JWT.AccessExpiry.Seconds())
}

// GenerateToken issues a caller token for userID valid for ttl, or for the
// configured access expiry when ttl is zero.
func (s *Service) GenerateToken(userID int64, ttl time.Duration) (string, error) {
	if s.config.JWT.SecretKey == "" {
		return "", ErrMissingKey
	}
	if ttl <= 0 {
		ttl = s.config.JWT.AccessExpiry
	}

	now := time.Now()
	jti := uuid.New().String()
	claims := Claims{
		UserID: userID,
		JTI:    jti,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.JWT.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  []string{s.config.JWT.Issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWT.SecretKey))
	if err != nil {
		s.logger.Error("failed to sign JWT token", zap.Error(err))
		return "", fmt.Errorf("failed to generate JWT token: %w", err)
	}

	return tokenString, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if s.config.JWT.SecretKey == "" {
		return nil, ErrMissingKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}

		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected algorithm: expected HS256, got %s", token.Method.Alg())
		}

		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}

		return []byte(s.config.JWT.SecretKey), nil
	}, jwt.WithIssuer(s.config.JWT.Issuer), jwt.WithAudience(s.config.JWT.Issuer))

	if err != nil {
		s.logger.Warn("JWT token validation failed", zap.Error(err))

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subject != claims.UserID || subject <= 0 {
		return nil, ErrInvalidSubject
	}

	if s.revocationService != nil {
		revoked, err := s.revocationService.IsTokenRevoked(claims.JTI)
		if err != nil {
			s.logger.Error("failed to check token revocation status", zap.Error(err))
		} else if revoked {
			s.logger.Warn("token validation failed, token has been revoked", zap.String("jti", claims.JTI))
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// RevokeToken withdraws a validated token until its natural expiry.
func (s *Service) RevokeToken(claims *Claims) error {
	if s.revocationService == nil {
		return ErrNoRevocation
	}
	if claims == nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}

	if err := s.revocationService.RevokeToken(claims.JTI, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("failed to revoke token", zap.Error(err))
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
