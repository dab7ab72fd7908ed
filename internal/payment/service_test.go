package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"onboarding-service/internal/client"
	"onboarding-service/internal/config"
	"onboarding-service/internal/models"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Paystack: config.PaystackConfig{
			BaseURL:   server.URL,
			SecretKey: "sk_test_secret",
			Timeout:   5 * time.Second,
		},
	}
	return NewService(client.NewPaystackClient(cfg, zap.NewNop())), server
}

func TestInitializeZeroAmountSkipsProvider(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called for a zero-amount checkout")
	}))

	result, err := svc.Initialize(context.Background(), &models.CheckoutIntent{
		Email:     "user@example.com",
		AmountUSD: 0,
	})
	require.NoError(t, err)
	assert.True(t, result.Free)
	assert.Empty(t, result.AuthorizationURL)

	result, err = svc.Initialize(context.Background(), &models.CheckoutIntent{
		Email:     "user@example.com",
		AmountUSD: -10,
	})
	require.NoError(t, err)
	assert.True(t, result.Free)
}

func TestInitializeReturnsRedirect(t *testing.T) {
	var captured client.InitializeRequest
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "ref-42",
			},
		})
	}))

	result, err := svc.Initialize(context.Background(), &models.CheckoutIntent{
		Email:       "user@example.com",
		AmountUSD:   49.99,
		CallbackURL: "https://shop.example.com/checkout/done",
		Metadata:    map[string]string{"order_id": "o-1"},
	})
	require.NoError(t, err)
	assert.False(t, result.Free)
	assert.Equal(t, "https://checkout.paystack.com/abc123", result.AuthorizationURL)
	assert.Equal(t, "ref-42", result.Reference)

	// Amounts travel in cents.
	assert.Equal(t, int64(4999), captured.AmountCents)
	assert.Equal(t, "https://shop.example.com/checkout/done", captured.CallbackURL)
}

func TestInitializeRoundsToNearestCent(t *testing.T) {
	var captured client.InitializeRequest
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"reference":         "ref-42",
			},
		})
	}))

	// 19.99 is not exactly representable in float64; a plain truncation
	// would send 1998.
	tests := []struct {
		amountUSD float64
		cents     int64
	}{
		{19.99, 1999},
		{29.99, 2999},
		{0.01, 1},
		{100, 10000},
	}
	for _, tc := range tests {
		_, err := svc.Initialize(context.Background(), &models.CheckoutIntent{
			Email:     "user@example.com",
			AmountUSD: tc.amountUSD,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.cents, captured.AmountCents, "amount %v", tc.amountUSD)
	}
}

func TestInitializeProviderRejection(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Invalid key",
		})
	}))

	_, err := svc.Initialize(context.Background(), &models.CheckoutIntent{
		Email:     "user@example.com",
		AmountUSD: 10,
	})
	assert.ErrorIs(t, err, ErrInitializeFailed)
}

func TestVerifyOutcomes(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "failed"
		if r.URL.Path == "/transaction/verify/ref-good" {
			status = "success"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data":   map[string]string{"status": status},
		})
	}))
	ctx := context.Background()

	outcome, err := svc.Verify(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.VerifyMissing, outcome)

	outcome, err = svc.Verify(ctx, "ref-good")
	require.NoError(t, err)
	assert.Equal(t, models.VerifySuccess, outcome)

	outcome, err = svc.Verify(ctx, "ref-bad")
	require.NoError(t, err)
	assert.Equal(t, models.VerifyFailed, outcome)
}

func TestExtractReference(t *testing.T) {
	assert.Equal(t, "r1", ExtractReference(url.Values{"reference": {"r1"}}))
	assert.Equal(t, "r2", ExtractReference(url.Values{"trxref": {"r2"}}))
	// reference wins over the trxref alias.
	assert.Equal(t, "r1", ExtractReference(url.Values{"reference": {"r1"}, "trxref": {"r2"}}))
	assert.Empty(t, ExtractReference(url.Values{}))
}

func TestStripReference(t *testing.T) {
	cleaned, err := StripReference("https://shop.example.com/done?reference=r1&trxref=r1&step=5")
	require.NoError(t, err)

	parsed, err := url.Parse(cleaned)
	require.NoError(t, err)
	assert.Empty(t, parsed.Query().Get("reference"))
	assert.Empty(t, parsed.Query().Get("trxref"))
	assert.Equal(t, "5", parsed.Query().Get("step"))

	// Stripping an already-clean URL is a no-op.
	again, err := StripReference(cleaned)
	require.NoError(t, err)
	assert.Equal(t, cleaned, again)
}
