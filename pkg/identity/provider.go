package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openbiome/coral/pkg/access"
)

// Provider validates a bearer token and returns the principal it
// belongs to. An empty or invalid token yields access.ErrUnauthorized;
// callers decide whether anonymous access is acceptable.
type Provider interface {
	Validate(ctx context.Context, token string) (*access.Principal, error)
}

// HTTPProvider validates tokens against the identity provider's
// introspection endpoint.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider against baseURL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type validateResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Validate implements Provider.
func (p *HTTPProvider) Validate(ctx context.Context, token string) (*access.Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", access.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/v1/validate", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("token rejected: %w", access.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("identity provider returned status %d: %s", resp.StatusCode, body)
	}

	var payload validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode validation response: %w", err)
	}
	if payload.UserID == 0 {
		return nil, fmt.Errorf("validation response missing user id: %w", access.ErrUnauthorized)
	}

	return &access.Principal{UserID: payload.UserID, Username: payload.Username}, nil
}
