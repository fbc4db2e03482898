package fitbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClient_ClassifiesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"summary":{"steps":10}}`))
		case "/throttled":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	res := c.Get(ctx, "tok", "/ok")
	assert.Equal(t, KindOK, res.Kind)
	assert.JSONEq(t, `{"summary":{"steps":10}}`, string(res.Payload))

	assert.Equal(t, KindRateLimited, c.Get(ctx, "tok", "/throttled").Kind)
	assert.Equal(t, KindAuthExpired, c.Get(ctx, "stale", "/ok").Kind)

	res = c.Get(ctx, "tok", "/missing")
	assert.Equal(t, KindError, res.Kind)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Error(t, res.Error())

	assert.Equal(t, KindError, c.Get(ctx, "tok", "/boom").Kind)
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	res := NewClient(url, time.Second, zap.NewNop()).Get(context.Background(), "tok", "/ok")
	assert.Equal(t, KindError, res.Kind)
	assert.Equal(t, 0, res.StatusCode)
	assert.Error(t, res.Err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ok", KindOK.String())
	assert.Equal(t, "rate_limited", KindRateLimited.String())
	assert.Equal(t, "auth_expired", KindAuthExpired.String())
	assert.Equal(t, "error", KindError.String())
}
