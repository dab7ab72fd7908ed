package service

import (
	"errors"
	"fmt"
	"net/url"

	"onboarding-service/internal/config"
	"onboarding-service/internal/util"
)

var ErrProviderNotConfigured = errors.New("oauth provider not configured")

// AuthService builds the third-party sign-in redirects. The OTP exchange
// itself lives in the verification package; this covers the OAuth-style
// providers where the whole handshake happens off-site.
type AuthService struct {
	config *config.Config
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{config: cfg}
}

// GoogleAuthURL returns the Google OAuth consent URL. State is the
// caller's opaque resume token, round-tripped untouched.
func (s *AuthService) GoogleAuthURL(state string) (string, error) {
	oauth := s.config.OAuth
	if oauth.GoogleClientID == "" || oauth.GoogleRedirectURL == "" {
		return "", fmt.Errorf("%w: google", ErrProviderNotConfigured)
	}

	query := url.Values{}
	query.Set("client_id", oauth.GoogleClientID)
	query.Set("redirect_uri", oauth.GoogleRedirectURL)
	query.Set("response_type", "code")
	query.Set("scope", "openid email profile")
	query.Set("state", state)
	return "https://accounts.google.com/o/oauth2/v2/auth?" + query.Encode(), nil
}

// ShopifyInstallURL returns the app-install URL for a merchant's shop.
// The shop domain is normalized first so casing and scheme differences
// collapse to one canonical install link.
func (s *AuthService) ShopifyInstallURL(shopDomain, state string) (string, error) {
	oauth := s.config.OAuth
	if oauth.ShopifyAPIKey == "" || oauth.ShopifyRedirect == "" {
		return "", fmt.Errorf("%w: shopify", ErrProviderNotConfigured)
	}
	if !util.IsValidStoreURL(shopDomain) {
		return "", errors.New("invalid shop domain")
	}
	shop := util.NormalizeStoreURL(shopDomain)

	query := url.Values{}
	query.Set("client_id", oauth.ShopifyAPIKey)
	query.Set("scope", oauth.ShopifyScopes)
	query.Set("redirect_uri", oauth.ShopifyRedirect)
	query.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, query.Encode()), nil
}
