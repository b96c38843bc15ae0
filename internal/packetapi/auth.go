package packetapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const expiryLeeway = 30 * time.Second

// AuthManager supplies the bearer token sent to the packet server. A static
// token wins; otherwise tokens come from an OIDC client-credentials grant.
type AuthManager struct {
	cfg       config.AuthConfig
	client    *http.Client
	token     string
	expiresAt time.Time
	mu        sync.RWMutex
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthManager(cfg config.AuthConfig, timeout time.Duration) *AuthManager {
	return &AuthManager{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		log: logger.Get(),
		now: time.Now,
	}
}

// Enabled reports whether requests should carry an Authorization header.
func (a *AuthManager) Enabled() bool {
	return a.cfg.Token != "" || a.cfg.TokenURL != ""
}

func (a *AuthManager) GetToken(ctx context.Context) (string, error) {
	if a.cfg.Token != "" {
		return a.cfg.Token, nil
	}

	a.mu.RLock()
	if a.token != "" && a.now().Before(a.expiresAt.Add(-expiryLeeway)) {
		token := a.token
		a.mu.RUnlock()
		return token, nil
	}
	a.mu.RUnlock()

	return a.refreshToken(ctx)
}

// Invalidate drops the cached token so the next call fetches a new one.
func (a *AuthManager) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

func (a *AuthManager) refreshToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Double check after acquiring write lock
	if a.token != "" && a.now().Before(a.expiresAt.Add(-expiryLeeway)) {
		return a.token, nil
	}

	a.log.Debug().Str("token_url", a.cfg.TokenURL).Msg("Refreshing packet API token")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.NewRetryableError(err, "token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", errors.ErrAuthenticationFailed, resp.StatusCode)
	}

	var tokenResp model.AuthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", errors.ErrAuthenticationFailed)
	}

	a.token = tokenResp.AccessToken
	a.expiresAt = a.expiry(tokenResp)

	a.log.Debug().Time("expires_at", a.expiresAt).Msg("Token refreshed successfully")

	return a.token, nil
}

// expiry prefers expires_in and falls back to the token's own exp claim. The
// signature is not checked here; the packet server verifies it.
func (a *AuthManager) expiry(resp model.AuthTokenResponse) time.Time {
	if resp.ExpiresIn > 0 {
		return a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}

	// Opaque token without lifetime: reuse it for a minute past the leeway.
	return a.now().Add(expiryLeeway + time.Minute)
}
