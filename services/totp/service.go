package totp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

const (
	Period = 30 * time.Second
	Digits = 6
)

var (
	ErrInvalidSecret     = errors.New("invalid TOTP secret")
	ErrGenerationFailure = errors.New("failed to generate TOTP code")
)

var validateOpts = totp.ValidateOpts{
	Period:    uint(Period / time.Second),
	Skew:      0,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// NormalizeSecret strips whitespace and padding and upper-cases a base32
// secret the way authenticator apps accept it.
func NormalizeSecret(secret string) string {
	compact := strings.ToUpper(strings.Join(strings.Fields(secret), ""))
	return strings.TrimRight(compact, "=")
}

// ValidateSecret reports whether secret can be used to derive codes.
func ValidateSecret(secret string) error {
	normalized := NormalizeSecret(secret)
	if normalized == "" {
		return fmt.Errorf("%w: secret is empty", ErrInvalidSecret)
	}

	for _, r := range normalized {
		if !isBase32(r) {
			return fmt.Errorf("%w: %q is not a base32 character", ErrInvalidSecret, r)
		}
	}

	if _, err := totp.GenerateCodeCustom(normalized, time.Unix(0, 0), validateOpts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	return nil
}

// CodeFor derives the 6-digit code for the 30 second window containing at.
func CodeFor(secret string, at time.Time) (string, error) {
	if err := ValidateSecret(secret); err != nil {
		return "", err
	}

	code, err := totp.GenerateCodeCustom(NormalizeSecret(secret), at, validateOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}

	return code, nil
}

// WindowRemaining is how long the code valid at t stays valid.
func WindowRemaining(at time.Time) time.Duration {
	step := int64(Period / time.Second)
	next := (at.Unix()/step + 1) * step
	return time.Unix(next, 0).Sub(at)
}

func isBase32(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7')
}

// Generator is the injectable face of CodeFor: it owns the clock and logs
// derivation failures as server faults.
type Generator struct {
	logger *logging.Service
	now    func() time.Time
}

func NewGenerator(logger *logging.Service) *Generator {
	return &Generator{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source, mostly for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

func (g *Generator) Now() time.Time {
	return g.now()
}

func (g *Generator) Validate(secret string) error {
	return ValidateSecret(secret)
}

// Current returns the code for the current window and how long it stays valid.
func (g *Generator) Current(secret string) (string, time.Duration, error) {
	now := g.now()

	code, err := CodeFor(secret, now)
	if err != nil {
		g.logger.Error("TOTP code derivation failed", zap.Error(err))
		return "", 0, err
	}

	return code, WindowRemaining(now), nil
}
