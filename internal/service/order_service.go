package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"onboarding-service/internal/analytics"
	"onboarding-service/internal/encryption"
	"onboarding-service/internal/models"
	"onboarding-service/internal/payment"
	"onboarding-service/internal/repository/scylla"
	"onboarding-service/internal/util"
	"onboarding-service/internal/verification"
)

var (
	ErrOrderInvalid = errors.New("invalid order")
)

// PlaceOrderInput is a validated order submission. The verification code
// proves ownership of the contact email before anything is persisted.
type PlaceOrderInput struct {
	Email            string  `json:"email" validate:"required,email"`
	Code             string  `json:"code" validate:"required"`
	StoreURL         string  `json:"store_url" validate:"required"`
	CollaboratorCode string  `json:"collaborator_code"`
	ServiceID        string  `json:"service_id" validate:"required"`
	ServiceTitle     string  `json:"service_title"`
	PackageName      string  `json:"package_name" validate:"required"`
	PackagePriceUSD  float64 `json:"package_price_usd"`
	CallbackURL      string  `json:"callback_url"`
}

// PlaceOrderResult carries the new order id and, for paid packages, the
// provider redirect.
type PlaceOrderResult struct {
	OrderID          string `json:"id"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	Reference        string `json:"reference,omitempty"`
}

// OrderService owns order intake: email proof, PII encryption at rest,
// Scylla persistence and the checkout handoff.
type OrderService struct {
	orders       *scylla.OrderRepository
	verification *verification.Service
	payments     *payment.Service
	crypto       *encryption.EncryptionManager
	recorder     *analytics.Recorder
}

func NewOrderService(orders *scylla.OrderRepository, verify *verification.Service, payments *payment.Service, crypto *encryption.EncryptionManager, recorder *analytics.Recorder) *OrderService {
	return &OrderService{
		orders:       orders,
		verification: verify,
		payments:     payments,
		crypto:       crypto,
		recorder:     recorder,
	}
}

// PlaceOrder verifies the submitted code, persists the order with the
// contact email encrypted, and initializes payment when the package has
// a price. Zero-priced packages complete immediately as free orders.
func (s *OrderService) PlaceOrder(ctx context.Context, input *PlaceOrderInput) (*PlaceOrderResult, error) {
	if !util.IsValidStoreURL(input.StoreURL) {
		return nil, fmt.Errorf("%w: store url", ErrOrderInvalid)
	}
	email := util.NormalizeEmail(input.Email)
	storeURL := util.NormalizeStoreURL(input.StoreURL)

	if _, err := s.verification.CheckCode(ctx, email, verification.PurposeSignup, input.Code); err != nil {
		return nil, err
	}

	envelope, err := s.crypto.EncryptField(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("encrypt contact email: %w", err)
	}
	sealed, err := envelope.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode email envelope: %w", err)
	}

	order := &models.Order{
		OrderID:          uuid.New().String(),
		EmailHash:        HashEmail(email),
		EmailEncrypted:   sealed,
		EmailKeyID:       envelope.KeyID,
		StoreURL:         storeURL,
		CollaboratorCode: input.CollaboratorCode,
		ServiceID:        input.ServiceID,
		ServiceTitle:     input.ServiceTitle,
		PackageName:      input.PackageName,
		PackagePriceUSD:  input.PackagePriceUSD,
		PaymentStatus:    models.PaymentStatusPending,
		CreatedAt:        time.Now(),
	}

	result := &PlaceOrderResult{OrderID: order.OrderID}

	if input.PackagePriceUSD <= 0 {
		order.PaymentStatus = models.PaymentStatusFree
	} else {
		init, err := s.payments.Initialize(ctx, &models.CheckoutIntent{
			Email:       email,
			AmountUSD:   input.PackagePriceUSD,
			CallbackURL: input.CallbackURL,
			Metadata: map[string]string{
				"order_id": order.OrderID,
			},
		})
		if err != nil {
			return nil, err
		}
		order.PaymentReference = init.Reference
		result.AuthorizationURL = init.AuthorizationURL
		result.Reference = init.Reference
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.recorder.Record(ctx, &models.FlowEvent{
		EventType: models.EventOrderPlaced,
		Flow:      "order",
		SessionID: order.OrderID,
		Detail:    order.PackageName,
	})

	util.Info("Order placed",
		util.String("order_id", order.OrderID),
		util.String("package", order.PackageName),
		util.String("status", order.PaymentStatus))
	return result, nil
}

// ConfirmPayment resolves a post-redirect reference and, when the
// provider confirms it, marks the matching order confirmed. The outcome
// enum is returned either way so callers can render missing and failed
// distinctly.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID, reference string) (models.VerifyOutcome, error) {
	outcome, err := s.payments.Verify(ctx, reference)
	if err != nil {
		return outcome, err
	}
	if outcome != models.VerifySuccess {
		return outcome, nil
	}

	if orderID != "" {
		if err := s.orders.UpdatePaymentStatus(ctx, orderID, reference, models.PaymentStatusConfirmed); err != nil {
			return outcome, fmt.Errorf("confirm order payment: %w", err)
		}
	}
	return outcome, nil
}

// GetOrder loads an order and decrypts its contact email.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, string, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	envelope, err := encryption.UnmarshalEnvelope(order.EmailEncrypted)
	if err != nil {
		return order, "", err
	}
	email, err := s.crypto.DecryptField(ctx, envelope)
	if err != nil {
		return order, "", err
	}
	return order, email, nil
}

// HealthCheck probes the order persistence path.
func (s *OrderService) HealthCheck(ctx context.Context) error {
	return s.orders.HealthCheck(ctx)
}

// HashEmail produces the deterministic lookup hash stored beside the
// encrypted address. SHA-256 keeps lookups by email possible without
// storing the address in clear.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(util.NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}
