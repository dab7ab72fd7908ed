package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"onboarding-service/internal/client"
	"onboarding-service/internal/models"
	"onboarding-service/internal/util"
)

var (
	ErrInitializeFailed = errors.New("payment initialization failed")
	ErrVerifyFailed     = errors.New("payment verification failed")
)

// InitResult is what a checkout initialization hands back: either a
// provider redirect, or an immediate completion for free orders.
type InitResult struct {
	// Free is set when the amount was zero or negative; no provider call
	// was made and no redirect is needed.
	Free             bool
	AuthorizationURL string
	Reference        string
}

// Service fronts the Paystack transaction API for order checkout.
type Service struct {
	paystack *client.PaystackClient
}

func NewService(paystack *client.PaystackClient) *Service {
	return &Service{paystack: paystack}
}

// Initialize starts a checkout. Zero-amount intents short-circuit to an
// immediately complete result without touching the provider.
func (s *Service) Initialize(ctx context.Context, intent *models.CheckoutIntent) (*InitResult, error) {
	if intent.AmountUSD <= 0 {
		util.Info("Free checkout, skipping payment provider",
			util.String("email", intent.Email))
		return &InitResult{Free: true}, nil
	}

	resp, err := s.paystack.Initialize(ctx, &client.InitializeRequest{
		Email:       intent.Email,
		AmountCents: int64(math.Round(intent.AmountUSD * 100)),
		Currency:    "USD",
		CallbackURL: intent.CallbackURL,
		Metadata:    intent.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitializeFailed, err)
	}

	util.Info("Payment initialized",
		util.String("reference", resp.Reference))
	return &InitResult{
		AuthorizationURL: resp.AuthorizationURL,
		Reference:        resp.Reference,
	}, nil
}

// Verify resolves a post-redirect reference to a three-valued outcome.
// An empty reference is VerifyMissing, not an error: the caller decides
// whether a missing reference matters for its flow.
func (s *Service) Verify(ctx context.Context, reference string) (models.VerifyOutcome, error) {
	if strings.TrimSpace(reference) == "" {
		return models.VerifyMissing, nil
	}

	success, err := s.paystack.VerifyTransaction(ctx, reference)
	if err != nil {
		return models.VerifyFailed, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	if !success {
		return models.VerifyFailed, nil
	}
	return models.VerifySuccess, nil
}

// ExtractReference pulls the provider reference out of a callback URL
// query. Paystack sends both reference and trxref; reference wins.
func ExtractReference(query url.Values) string {
	if ref := query.Get("reference"); ref != "" {
		return ref
	}
	return query.Get("trxref")
}

// StripReference removes the reference and trxref parameters from a URL
// so a reload after the redirect does not re-trigger verification.
func StripReference(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse callback url: %w", err)
	}
	query := parsed.Query()
	query.Del("reference")
	query.Del("trxref")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
