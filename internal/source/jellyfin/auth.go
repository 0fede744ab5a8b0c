package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/metrics"
)

const (
	apiVersion   = "10.10.3"
	clientName   = "medley"
	loginTimeout = 30 * time.Second
)

// TokenStore provides durable access to one provider's cached bearer token.
// Token is a non-blocking read of the last known-good value; SetToken makes
// a freshly obtained token visible to subsequent reads.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}

// Authenticator performs the credential exchange against the Jellyfin login
// endpoint and guarantees single-flight refresh: no matter how many requests
// concurrently observe the same stale token, at most one login call is made
// per actual credential rotation.
type Authenticator struct {
	mu         sync.Mutex
	httpClient *http.Client
	logger     *slog.Logger

	loginURL string
	username string
	password string
	deviceID string

	tokens TokenStore
}

// NewAuthenticator creates an authenticator for one configured provider
func NewAuthenticator(serverURL, username, password, deviceID string, tokens TokenStore, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		httpClient: &http.Client{Timeout: loginTimeout},
		logger:     logger,
		loginURL:   strings.TrimRight(serverURL, "/") + "/Users/AuthenticateByName",
		username:   username,
		password:   password,
		deviceID:   deviceID,
		tokens:     tokens,
	}
}

// Token returns the last known-good token, or "" when none is cached.
// Absence of a token is not an error: the request goes out unauthenticated
// and the 401 path drives acquisition.
func (a *Authenticator) Token() string {
	token, err := a.tokens.Token()
	if err != nil {
		a.logger.Warn("failed to read cached token", "error", err)
		return ""
	}
	return token
}

// OnUnauthorized handles a 401 observed with failedToken attached. It
// returns a token to retry with, or ok=false when no token could be
// obtained — in which case the triggering request fails terminally.
//
// The compare, lock, compare-again sequence bounds credential exchanges to
// one per rotation regardless of request fan-out: a caller that lost the
// race re-reads the winner's token instead of logging in again.
func (a *Authenticator) OnUnauthorized(failedToken string) (string, bool) {
	if current := a.Token(); current != "" && current != failedToken {
		// Another caller already refreshed; assume the new token is valid
		return current, true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Re-check inside the lock: a concurrent refresh may have completed
	// while this caller was waiting.
	if current := a.Token(); current != "" && current != failedToken {
		return current, true
	}

	// The login call deliberately runs on its own deadline rather than any
	// one request's context, so a cancelled caller cannot abort a refresh
	// that other waiters depend on.
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	token, err := a.login(ctx)
	if err != nil {
		metrics.AuthRefreshes.WithLabelValues(string(domain.ProviderTypeJellyfin), "failure").Inc()
		a.logger.Error("credential exchange failed", "url", a.loginURL, "error", err)
		return "", false
	}

	if err := a.tokens.SetToken(token); err != nil {
		a.logger.Warn("failed to persist refreshed token", "error", err)
	}
	metrics.AuthRefreshes.WithLabelValues(string(domain.ProviderTypeJellyfin), "success").Inc()
	a.logger.Info("refreshed access token", "username", a.username)
	return token, true
}

// login performs one credential exchange and returns the new access token
func (a *Authenticator) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(authenticateUser{
		Username: a.username,
		Password: a.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.loginURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Emby-Authorization", a.authorizationHeader())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrIO, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrIO, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", domain.ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: login returned status %d", domain.ErrIO, resp.StatusCode)
	}

	var result authenticateUserResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrDeserialization, err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("%w: login response carried no token", domain.ErrDeserialization)
	}

	return result.AccessToken, nil
}

// authorizationHeader builds the MediaBrowser client-identification header
// sent with the login request
func (a *Authenticator) authorizationHeader() string {
	return fmt.Sprintf(
		"MediaBrowser Client=%q, Device=%q, DeviceId=%q, Version=%q",
		clientName, clientName, a.deviceID, apiVersion,
	)
}

// bearerHeader builds the token header attached to authenticated requests
func bearerHeader(token string) string {
	return fmt.Sprintf("MediaBrowser Token=%q", token)
}
