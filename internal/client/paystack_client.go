package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"onboarding-service/internal/config"
	"onboarding-service/internal/util"
)

// PaystackClient talks to the payment initialization provider. Amounts are
// sent in the provider's smallest unit (USD cents).
type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// InitializeRequest is the provider's transaction-initialize payload.
type InitializeRequest struct {
	Email       string            `json:"email"`
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InitializeResponse carries the external checkout redirect.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func NewPaystackClient(cfg *config.Config, logger *zap.Logger) *PaystackClient {
	paystackConfig := cfg.Paystack

	util.Info("Paystack client initialized",
		zap.String("base_url", paystackConfig.BaseURL))

	return &PaystackClient{
		baseURL:   paystackConfig.BaseURL,
		secretKey: paystackConfig.SecretKey,
		httpClient: &http.Client{
			Timeout: paystackConfig.Timeout,
		},
		logger: logger,
	}
}

// Initialize creates a checkout transaction and returns the redirect data.
func (p *PaystackClient) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initialize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize request: %w", err)
	}
	p.setHeaders(httpReq)

	envelope, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	var data InitializeResponse
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode initialize response: %w", err)
	}

	p.logger.Debug("Payment transaction initialized",
		util.String("reference", data.Reference))

	return &data, nil
}

// VerifyTransaction checks a reference after the provider redirect. It
// returns true only when the provider reports the charge as successful.
func (p *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}
	p.setHeaders(httpReq)

	envelope, err := p.do(httpReq)
	if err != nil {
		return false, err
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return false, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return data.Status == "success", nil
}

func (p *PaystackClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")
}

func (p *PaystackClient) do(req *http.Request) (*paystackEnvelope, error) {
	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paystack request failed: %w", err)
	}
	defer res.Body.Close()

	var envelope paystackEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode paystack response: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest || !envelope.Status {
		if envelope.Message == "" {
			envelope.Message = res.Status
		}
		return nil, fmt.Errorf("paystack error: %s", envelope.Message)
	}

	return &envelope, nil
}
