package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sessions":
			assert.Equal(t, http.MethodPost, r.Method)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["login"] != "user@example.com" || body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"data":{"session-token":"session-abc"}}`))

		case "/api-quote-tokens":
			assert.Equal(t, http.MethodGet, r.Method)
			if r.Header.Get("Authorization") != "session-abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"data":{"token":"quote-xyz","dxlink-url":"wss://feed.example.com"}}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestClient_LoginAndQuoteToken(t *testing.T) {
	server := newAuthServer(t)
	defer server.Close()

	client := NewClient(server.URL, "user@example.com", "secret", 5*time.Second)

	session, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-abc", session)
	assert.Equal(t, "session-abc", client.SessionToken())

	token, err := client.QuoteToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quote-xyz", token)
}

func TestClient_LoginRejected(t *testing.T) {
	server := newAuthServer(t)
	defer server.Close()

	client := NewClient(server.URL, "user@example.com", "wrong", 5*time.Second)

	_, err := client.Login(context.Background())
	assert.ErrorIs(t, err, models.ErrNoToken)
	assert.Empty(t, client.SessionToken())
}

func TestClient_QuoteTokenRequiresLogin(t *testing.T) {
	client := NewClient("http://unused", "user", "pass", 5*time.Second)

	_, err := client.QuoteToken(context.Background())
	assert.ErrorIs(t, err, models.ErrNoToken)
}

func TestClient_LoginEmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"session-token":""}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "user", "pass", 5*time.Second)
	_, err := client.Login(context.Background())
	assert.ErrorIs(t, err, models.ErrNoToken)
}
