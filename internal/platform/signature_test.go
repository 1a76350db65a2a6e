// ABOUTME: Tests for webhook signature verification and the body-restoring middleware.
// ABOUTME: Covers accept, reject, malformed headers, and the disabled-secret passthrough.

package platform

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"events":[]}`)

	sig := Sign("secret", body)
	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.True(t, VerifySignature("secret", body, sig))
}

func TestVerifySignature_Rejections(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := Sign("secret", body)

	assert.False(t, VerifySignature("other-secret", body, sig), "wrong secret")
	assert.False(t, VerifySignature("secret", []byte("tampered"), sig), "tampered body")
	assert.False(t, VerifySignature("secret", body, "sha256=zznothex"), "non-hex digest")
	assert.False(t, VerifySignature("secret", body, strings.TrimPrefix(sig, "sha256=")), "missing scheme prefix")
	assert.False(t, VerifySignature("secret", body, ""), "missing header")
}

func TestSignatureMiddleware_ValidSignaturePassesBodyThrough(t *testing.T) {
	body := `{"events":[{"type":"text"}]}`

	var gotBody string
	handler := SignatureMiddleware("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(b)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("secret", []byte(body)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, gotBody, "handler must see the original body")
}

func TestSignatureMiddleware_InvalidSignatureIs401(t *testing.T) {
	called := false
	handler := SignatureMiddleware("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set(SignatureHeader, "sha256=deadbeef")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestSignatureMiddleware_EmptySecretDisablesVerification(t *testing.T) {
	called := false
	handler := SignatureMiddleware("", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
