package fileauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openbiome/coral/pkg/permission"
)

// Client reads and writes per-file, per-user permissions in the
// external file-authorization service.
type Client interface {
	// GetPermission returns the permission currently recorded for the
	// user on the file at path.
	GetPermission(ctx context.Context, path, username, token string) (permission.Remote, error)

	// SetPermission records a permission for the user on the file at
	// path, overwriting any previous value.
	SetPermission(ctx context.Context, path, username string, perm permission.Remote, token string) error
}

// HTTPClient is the production Client over the service's JSON API. The
// caller's bearer token is forwarded on every request; the client holds
// no credentials of its own.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client against baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type permissionPayload struct {
	Path       string `json:"path"`
	Username   string `json:"username"`
	Permission string `json:"permission"`
}

// GetPermission implements Client.
func (c *HTTPClient) GetPermission(ctx context.Context, path, username, token string) (permission.Remote, error) {
	endpoint := fmt.Sprintf("%s/api/v1/permissions?path=%s&username=%s",
		c.baseURL, url.QueryEscape(path), url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return permission.RemoteNone, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return permission.RemoteNone, fmt.Errorf("failed to get permission for %s: %w", path, err)
	}
	defer resp.Body.Close()

	// The service reports unknown files and users as NONE rather than
	// 404, so any non-2xx status is a real failure.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return permission.RemoteNone, statusError(resp)
	}

	var payload permissionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return permission.RemoteNone, fmt.Errorf("failed to decode permission response: %w", err)
	}

	return permission.ParseRemote(payload.Permission), nil
}

// SetPermission implements Client.
func (c *HTTPClient) SetPermission(ctx context.Context, path, username string, perm permission.Remote, token string) error {
	body, err := json.Marshal(permissionPayload{
		Path:       path,
		Username:   username,
		Permission: string(perm),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal permission payload: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/permissions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to set permission for %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	return nil
}

// statusError builds an error from a non-2xx response, including a
// bounded slice of the body for diagnostics.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(body) == 0 {
		return fmt.Errorf("file authorization service returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("file authorization service returned status %d: %s", resp.StatusCode, body)
}
