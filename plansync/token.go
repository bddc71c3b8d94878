package plansync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmdatafocus/production_backend/config"
)

const defaultTokenLifetime = time.Hour

// TokenManager caches the planning API bearer token. It is not safe for concurrent use;
// the Engine serializes access to it.
type TokenManager struct {
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	now          func() time.Time

	accessToken string
	expiresAt   time.Time
}

func NewTokenManager(api config.PlanningAPI, httpClient *http.Client) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: api.TokenTimeout}
	}
	return &TokenManager{
		tokenURL:     api.TokenURL,
		clientID:     api.ClientID,
		clientSecret: api.ClientSecret,
		http:         httpClient,
		now:          time.Now,
	}
}

// EnsureValid returns the cached token, exchanging credentials first when none is cached
// or the cached one has expired.
func (m *TokenManager) EnsureValid(ctx context.Context) (string, error) {
	if m.accessToken == "" || !m.now().Before(m.expiresAt) {
		if err := m.Exchange(ctx); err != nil {
			return "", err
		}
	}
	return m.accessToken, nil
}

// Exchange performs a client_credentials grant unconditionally.
func (m *TokenManager) Exchange(ctx context.Context) error {
	if m.clientID == "" || m.clientSecret == "" {
		return &AuthFailure{Err: errors.New("client credentials are not configured")}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthFailure{Err: err}
	}
	credential := base64.StdEncoding.EncodeToString([]byte(m.clientID + ":" + m.clientSecret))
	req.Header.Set("Authorization", "Basic "+credential)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return &AuthFailure{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthFailure{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &AuthFailure{Status: resp.StatusCode, Body: strings.TrimSpace(string(body)), Err: err}
	}
	if parsed.AccessToken == "" {
		return &AuthFailure{Status: resp.StatusCode, Body: strings.TrimSpace(string(body)), Err: errors.New("access_token missing")}
	}

	lifetime := defaultTokenLifetime
	if parsed.ExpiresIn != "" {
		if n, err := parsed.ExpiresIn.Int64(); err == nil && n > 0 {
			lifetime = time.Duration(n) * time.Second
		}
	}
	m.accessToken = parsed.AccessToken
	m.expiresAt = m.now().Add(lifetime)
	return nil
}

// Expiry is the instant the cached token stops being used; zero when nothing is cached.
func (m *TokenManager) Expiry() time.Time {
	return m.expiresAt
}
