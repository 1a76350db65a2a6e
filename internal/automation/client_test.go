// ABOUTME: Tests for the automation webhook client.
// ABOUTME: Uses httptest to validate payload shape, auth header, and failure surfacing.

package automation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_SendsJSONWithBearerToken(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hook-token", 5*time.Second)
	err := c.Post(context.Background(), map[string]string{"action": "email.send", "to": "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer hook-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "email.send", gotBody["action"])
}

func TestPost_NoTokenOmitsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	require.NoError(t, c.Post(context.Background(), map[string]string{}))
	assert.Empty(t, gotAuth)
}

func TestPost_Non2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	err := c.Post(context.Background(), map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "workflow not found")
}

func TestPost_TransportErrorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "", time.Second)
	err := c.Post(context.Background(), map[string]string{})
	assert.Error(t, err)
}
