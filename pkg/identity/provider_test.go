package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbiome/coral/pkg/access"
)

func TestValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/validate", r.URL.Path)
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(validateResponse{UserID: 42, Username: "alice"})
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 5*time.Second)
	principal, err := p.Validate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, "alice", principal.Username)
}

func TestValidateEmptyToken(t *testing.T) {
	p := NewHTTPProvider("http://localhost:0", 5*time.Second)
	_, err := p.Validate(context.Background(), "")
	assert.ErrorIs(t, err, access.ErrUnauthorized)
}

func TestValidateRejectedToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		p := NewHTTPProvider(server.URL, 5*time.Second)
		_, err := p.Validate(context.Background(), "bad-token")
		assert.ErrorIs(t, err, access.ErrUnauthorized, "status %d", status)

		server.Close()
	}
}

func TestValidateProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 5*time.Second)
	_, err := p.Validate(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, access.ErrUnauthorized)
	assert.Contains(t, err.Error(), "500")
}

func TestValidateMissingUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(validateResponse{Username: "ghost"})
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 5*time.Second)
	_, err := p.Validate(context.Background(), "token")
	assert.ErrorIs(t, err, access.ErrUnauthorized)
}
