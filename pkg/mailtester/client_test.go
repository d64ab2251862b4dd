package mailtester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServers(t *testing.T, verifyHandler http.HandlerFunc) (Client, *atomic.Int64) {
	t.Helper()
	var tokenCalls atomic.Int64

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"token": "tok-123"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	verifySrv := httptest.NewServer(verifyHandler)
	t.Cleanup(verifySrv.Close)

	c := NewClient("test-key",
		WithTokenBaseURL(tokenSrv.URL),
		WithVerifyBaseURL(verifySrv.URL),
	)
	return c, &tokenCalls
}

func TestVerify_Valid(t *testing.T) {
	c, _ := newTestServers(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ninja", r.URL.Path)
		assert.Equal(t, "info@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "tok-123", r.URL.Query().Get("token"))
		w.Write([]byte(`{"email": "info@example.com", "code": "ok", "message": "Accepted", "score": 0.97}`))
	})

	result, err := c.Verify(context.Background(), "info@example.com")
	require.NoError(t, err)
	assert.Equal(t, CodeValid, result.Code)
	assert.Equal(t, "info@example.com", result.Email)
	assert.InDelta(t, 0.97, result.Score, 0.001)
}

func TestVerify_TokenIsCachedAcrossCalls(t *testing.T) {
	c, tokenCalls := newTestServers(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "ko"}`))
	})

	for i := 0; i < 3; i++ {
		result, err := c.Verify(context.Background(), "x@example.com")
		require.NoError(t, err)
		assert.Equal(t, CodeInvalid, result.Code)
	}
	assert.Equal(t, int64(1), tokenCalls.Load())
}

func TestVerify_RejectedTokenIsDropped(t *testing.T) {
	var verifyCalls atomic.Int64
	c, tokenCalls := newTestServers(t, func(w http.ResponseWriter, r *http.Request) {
		if verifyCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"code": "ok"}`))
	})

	_, err := c.Verify(context.Background(), "x@example.com")
	require.Error(t, err)

	// The next call refetches a token and succeeds.
	result, err := c.Verify(context.Background(), "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, CodeValid, result.Code)
	assert.Equal(t, int64(2), tokenCalls.Load())
}

func TestVerify_FillsMissingEmail(t *testing.T) {
	c, _ := newTestServers(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "mb"}`))
	})

	result, err := c.Verify(context.Background(), "catchall@example.com")
	require.NoError(t, err)
	assert.Equal(t, "catchall@example.com", result.Email)
	assert.Equal(t, CodeCatchAll, result.Code)
}

func TestVerify_TokenEndpointFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer tokenSrv.Close()

	c := NewClient("test-key", WithTokenBaseURL(tokenSrv.URL))
	_, err := c.Verify(context.Background(), "x@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token endpoint status 500")
}
