package httputil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/alphapulse/pkg/config"
	"github.com/wonny/alphapulse/pkg/redis"
)

func testClient() *Client {
	return New(&config.Config{Env: "development"}, nil)
}

func TestNew(t *testing.T) {
	client := New(&config.Config{Upload: config.UploadConfig{FetchTimeout: 5 * time.Second}}, nil)

	require.NotNil(t, client.httpClient)
	assert.NotNil(t, client.logger)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 3, client.retryConfig.MaxRetries)

	assert.Equal(t, 30*time.Second, testClient().httpClient.Timeout)
}

func TestWithRetryAndDisable(t *testing.T) {
	client := testClient().WithRetry(5, 2*time.Second)
	assert.Equal(t, 5, client.retryConfig.MaxRetries)
	assert.Equal(t, 2*time.Second, client.retryConfig.InitialDelay)

	assert.False(t, client.DisableRetry().retryConfig.Enabled)
}

func TestGetBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{"initial_capital":1000,"trades":{}}`))
		}
	}))
	defer server.Close()

	client := testClient().DisableRetry()
	ctx := context.Background()

	body, err := client.GetBytes(ctx, server.URL+"/dataset.json", 1024)
	require.NoError(t, err)
	assert.JSONEq(t, `{"initial_capital":1000,"trades":{}}`, string(body))

	_, err = client.GetBytes(ctx, server.URL+"/dataset.json", 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = client.GetBytes(ctx, server.URL+"/missing", 1024)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client := testClient().WithRetry(3, 10*time.Millisecond)

	body, err := client.GetBytes(context.Background(), server.URL, 16)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := testClient().WithRetry(5, time.Second)
	_, err := client.Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterDisabledPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`x`))
	}))
	defer server.Close()

	client := testClient().WithRateLimiter(redis.NewRateLimiter(redis.Disabled(), "test"), redis.FetchRateLimit)
	_, err := client.GetBytes(context.Background(), server.URL, 8)
	assert.NoError(t, err)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.statusCode))
		})
	}
}
