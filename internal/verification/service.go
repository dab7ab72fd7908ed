package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"onboarding-service/internal/config"
	"onboarding-service/internal/hashing"
	"onboarding-service/internal/kvstore"
	"onboarding-service/internal/models"
	redisrepo "onboarding-service/internal/repository/redis"
	"onboarding-service/internal/token"
	"onboarding-service/internal/util"
)

var (
	ErrBusy            = errors.New("verification operation already in flight")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidCode     = errors.New("invalid code format")
	ErrCodeMismatch    = errors.New("verification code does not match")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrNoChallenge     = errors.New("no outstanding verification challenge")
	ErrResendCooldown  = errors.New("resend cooldown active")
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

// Sender delivers a verification code to an address. Production wires an
// email provider; development logs the code.
type Sender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogSender prints codes to the log instead of delivering them.
type LogSender struct{}

func (LogSender) SendCode(_ context.Context, email, code string) error {
	util.Info("Verification code issued (dev delivery)",
		util.String("email", email),
		util.String("code", code))
	return nil
}

// Service runs the OTP exchange: it issues hashed challenges into Redis,
// enforces the resend cooldown and attempt cap, and mints a bearer token
// when a code checks out.
type Service struct {
	config   *config.Config
	otpCache *redisrepo.OTPCache
	hasher   *hashing.Hasher
	issuer   *token.Issuer
	slot     kvstore.Store
	sender   Sender
}

func NewService(cfg *config.Config, otpCache *redisrepo.OTPCache, hasher *hashing.Hasher, issuer *token.Issuer, slot kvstore.Store, sender Sender) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{
		config:   cfg,
		otpCache: otpCache,
		hasher:   hasher,
		issuer:   issuer,
		slot:     slot,
		sender:   sender,
	}
}

// CodeLength returns the expected code length for a purpose. The admin
// variant uses the longer TOTP-style code.
func (s *Service) CodeLength(purpose string) int {
	if purpose == PurposeAdmin {
		return s.config.Verification.AdminCodeLength
	}
	return s.config.Verification.CodeLength
}

// SendCode issues a fresh challenge for the address and returns the
// cooldown seconds a client should display before offering a resend.
func (s *Service) SendCode(ctx context.Context, ex *Exchange, email, purpose string) (int, error) {
	if !ex.begin() {
		return 0, ErrBusy
	}
	defer ex.end()

	cooldown, err := s.IssueCode(ctx, email, purpose)
	if err != nil {
		return cooldown, err
	}

	ex.markSent(util.NormalizeEmail(email))
	return cooldown, nil
}

// IssueCode sends a challenge outside an interactive exchange. The Redis
// resend lock is the only serialization; concurrent sends for the same
// address collapse into one challenge per cooldown window.
func (s *Service) IssueCode(ctx context.Context, email, purpose string) (int, error) {
	if !util.IsValidEmail(email) {
		return 0, ErrInvalidEmail
	}
	email = util.NormalizeEmail(email)

	cooldown := s.config.Verification.ResendCooldown
	acquired, err := s.otpCache.SetResendLock(ctx, email, purpose, cooldown)
	if err != nil {
		return 0, fmt.Errorf("acquire resend lock: %w", err)
	}
	if !acquired {
		remaining, remErr := s.otpCache.ResendCooldownRemaining(ctx, email, purpose)
		if remErr != nil {
			remaining = cooldown
		}
		return int(remaining.Seconds()), ErrResendCooldown
	}

	if err := s.issueChallenge(ctx, email, purpose); err != nil {
		return 0, err
	}
	return int(cooldown.Seconds()), nil
}

// ResendCode re-issues the code for the exchange's current address. The
// server-side cooldown is checked regardless of what the client's
// countdown displays.
func (s *Service) ResendCode(ctx context.Context, ex *Exchange, purpose string) (int, error) {
	email := ex.Email()
	if email == "" || ex.State() != StateAwaitingCode {
		return 0, ErrNoChallenge
	}

	if !ex.begin() {
		return 0, ErrBusy
	}
	defer ex.end()

	cooldown := s.config.Verification.ResendCooldown
	acquired, err := s.otpCache.SetResendLock(ctx, email, purpose, cooldown)
	if err != nil {
		return 0, fmt.Errorf("acquire resend lock: %w", err)
	}
	if !acquired {
		remaining, remErr := s.otpCache.ResendCooldownRemaining(ctx, email, purpose)
		if remErr != nil {
			remaining = cooldown
		}
		return int(remaining.Seconds()), ErrResendCooldown
	}

	if err := s.issueChallenge(ctx, email, purpose); err != nil {
		return 0, err
	}
	return int(cooldown.Seconds()), nil
}

// VerifyCode checks a submitted code against the outstanding challenge.
// Codes of the wrong shape are rejected locally before any lookup. On
// success the challenge is consumed, a bearer token is issued and
// persisted to the durable token slot, and the token is returned.
func (s *Service) VerifyCode(ctx context.Context, ex *Exchange, purpose, code string) (string, error) {
	email := ex.Email()
	if email == "" || ex.State() != StateAwaitingCode {
		return "", ErrNoChallenge
	}

	if !ex.begin() {
		return "", ErrBusy
	}
	defer ex.end()

	return s.CheckCode(ctx, email, purpose, code)
}

// CheckCode verifies a code for an address outside an interactive
// exchange, e.g. when an order submission carries the code inline. The
// same attempt cap and expiry rules apply.
func (s *Service) CheckCode(ctx context.Context, email, purpose, code string) (string, error) {
	email = util.NormalizeEmail(email)

	// Shape check first so typos never burn a server-side attempt.
	if !codeShapeValid(code, s.CodeLength(purpose)) {
		return "", ErrInvalidCode
	}

	challenge, err := s.otpCache.GetChallenge(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, redisrepo.ErrChallengeNotFound) {
			return "", ErrNoChallenge
		}
		return "", fmt.Errorf("load challenge: %w", err)
	}

	if challenge.Expired(time.Now()) {
		_ = s.otpCache.DeleteChallenge(ctx, email, purpose)
		return "", ErrCodeExpired
	}

	attempts, err := s.otpCache.IncrementAttempts(ctx, email, purpose, s.config.Verification.CodeTTL)
	if err != nil {
		return "", fmt.Errorf("count attempt: %w", err)
	}
	if attempts > s.config.Verification.MaxAttempts {
		_ = s.otpCache.DeleteChallenge(ctx, email, purpose)
		return "", ErrTooManyAttempts
	}

	ok, err := s.hasher.VerifyCode(code, &hashing.HashResult{
		Hash:          challenge.CodeHash,
		Salt:          challenge.CodeSalt,
		PepperVersion: challenge.PepperVersion,
	})
	if err != nil {
		return "", fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		return "", ErrCodeMismatch
	}

	if err := s.otpCache.DeleteChallenge(ctx, email, purpose); err != nil {
		util.Warn("Failed to consume verification challenge",
			util.String("email", email),
			util.ErrorField(err))
	}

	bearer, err := s.issuer.Issue(email, purpose)
	if err != nil {
		return "", fmt.Errorf("issue bearer token: %w", err)
	}

	if err := s.slot.Set(ctx, kvstore.KeyBearerToken, bearer); err != nil {
		// Token slot persistence is best effort; the caller still gets
		// the token in hand.
		util.Warn("Failed to persist bearer token slot", util.ErrorField(err))
	}

	util.Info("Email verified",
		util.String("email", email),
		util.String("purpose", purpose))
	return bearer, nil
}

func (s *Service) issueChallenge(ctx context.Context, email, purpose string) error {
	code, err := generateCode(s.CodeLength(purpose))
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	hashed, err := s.hasher.HashCode(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	now := time.Now()
	challenge := &models.VerificationChallenge{
		Email:         email,
		Purpose:       purpose,
		CodeHash:      hashed.Hash,
		CodeSalt:      hashed.Salt,
		PepperVersion: hashed.PepperVersion,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.config.Verification.CodeTTL),
	}

	if err := s.otpCache.SetChallenge(ctx, challenge, s.config.Verification.CodeTTL); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	if err := s.sender.SendCode(ctx, email, code); err != nil {
		return fmt.Errorf("deliver code: %w", err)
	}

	util.Info("Verification code sent",
		util.String("email", email),
		util.String("purpose", purpose),
		util.Duration("ttl", s.config.Verification.CodeTTL))
	return nil
}

func codeShapeValid(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
