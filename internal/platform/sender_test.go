// ABOUTME: Tests for the outbound HTTP message sender.
// ABOUTME: Validates payload shape, bearer auth, and error surfacing on bad statuses.

package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSender_Send(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, "tok", nil)
	require.NoError(t, s.Send(context.Background(), "user-1", "hello"))

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "user-1", gotBody["to"])
	assert.Equal(t, "hello", gotBody["text"])
}

func TestHTTPSender_Send_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown recipient", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, "", nil)
	err := s.Send(context.Background(), "ghost", "boo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestHTTPSender_Send_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s := NewHTTPSender(srv.URL, "", nil)
	assert.Error(t, s.Send(context.Background(), "user-1", "hello"))
}
