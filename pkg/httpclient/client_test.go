package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	client := New()

	assert.Equal(t, 3, client.maxRetries)
	assert.Equal(t, 2*time.Second, client.baseDelay)
	assert.Equal(t, 60*time.Second, client.client.Timeout)
	assert.NotNil(t, client.strategyFunc)
}

func TestDo_SuccessNoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	client := New(WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	client := New(WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_NonRetryableStatusReturnsImmediately(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := New(WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_RetryBudgetExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(WithBaseDelay(time.Millisecond), WithMaxRetries(2))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}

	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, http.StatusServiceUnavailable, retryErr.StatusCode)
	assert.True(t, retryErr.IsRetryable())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type closeTrackingBody struct {
	io.Reader
	closed *bool
}

func (b *closeTrackingBody) Close() error {
	*b.closed = true
	return nil
}

func TestDo_ClosesRetriedResponseBodies(t *testing.T) {
	var bodies []*bool
	calls := 0
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		status := http.StatusServiceUnavailable
		if calls == 3 {
			status = http.StatusOK
		}
		closed := new(bool)
		bodies = append(bodies, closed)
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{},
			Body:       &closeTrackingBody{Reader: strings.NewReader("payload"), closed: closed},
			Request:    req,
		}, nil
	})

	client := New(WithBaseDelay(time.Millisecond))
	client.client.Transport = transport

	req, err := http.NewRequest(http.MethodGet, "http://upstream.test/v1", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 3, calls)
	assert.True(t, *bodies[0], "first retried body must be closed")
	assert.True(t, *bodies[1], "second retried body must be closed")
	assert.False(t, *bodies[2], "the delivered body stays open for the caller")
}

func TestDefaultRetryStrategy(t *testing.T) {
	tests := []struct {
		status   int
		strategy RetryStrategy
	}{
		{http.StatusTooManyRequests, SmartRetry},
		{http.StatusServiceUnavailable, SmartRetry},
		{http.StatusInternalServerError, ConservativeRetry},
		{http.StatusBadGateway, ConservativeRetry},
		{http.StatusBadRequest, NoRetry},
		{http.StatusUnauthorized, NoRetry},
		{http.StatusNotFound, NoRetry},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.strategy, DefaultRetryStrategy(tt.status))
		})
	}
}

func TestParseOpenAIHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Retry-After", "7")
	headers.Set("x-ratelimit-remaining-requests", "42")
	headers.Set("x-ratelimit-remaining-tokens", "9000")

	info := ParseOpenAIHeaders(headers)
	assert.Equal(t, 7*time.Second, info.RetryAfter)
	assert.Equal(t, 42, info.RequestsRemaining)
	assert.Equal(t, 9000, info.TokensRemaining)
}

func TestCalculateDelay_ConservativeCapsRetries(t *testing.T) {
	client := New()

	assert.Equal(t, 2*time.Second, client.calculateDelay(ConservativeRetry, 0, RateLimitInfo{}))
	assert.Equal(t, 3*time.Second, client.calculateDelay(ConservativeRetry, 1, RateLimitInfo{}))
	assert.Equal(t, time.Duration(0), client.calculateDelay(ConservativeRetry, 2, RateLimitInfo{}))
}

func TestCalculateDelay_SmartPrefersRetryAfter(t *testing.T) {
	client := New(WithBaseDelay(time.Millisecond))

	delay := client.calculateDelay(SmartRetry, 0, RateLimitInfo{RetryAfter: 5 * time.Second})
	assert.Equal(t, 5*time.Second, delay)
}
