package exchangerateapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/provider"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithEndpoint(srv.URL + "/latest/"), WithClient(srv.Client())}, opts...)
	return New(opts...)
}

func TestFetchRate(t *testing.T) {
	var gotPath, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"USD":1,"CNY":7.1,"EUR":0.92}}`))
	}, WithAPIKey("k123"))

	v, err := c.FetchRate(context.Background(), "USD")

	require.NoError(t, err)
	assert.InDelta(t, 7.1, v, 1e-9)
	assert.Equal(t, "/latest/USD", gotPath)
	assert.Equal(t, "k123", gotKey)
}

func TestFetchRate_NoAPIKey(t *testing.T) {
	var rawQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"rates":{"CNY":0.05}}`))
	})

	_, err := c.FetchRate(context.Background(), "JPY")

	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}

func TestFetchRate_PermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "missing base", status: http.StatusOK, body: `{"rates":{"USD":1}}`, wantErr: provider.ErrBaseRateMissing},
		{name: "zero rate", status: http.StatusOK, body: `{"rates":{"CNY":0}}`, wantErr: provider.ErrInvalidRate},
		{name: "negative rate", status: http.StatusOK, body: `{"rates":{"CNY":-2}}`, wantErr: provider.ErrInvalidRate},
		{name: "not found", status: http.StatusNotFound, body: `{}`, wantErr: ErrStatusCode},
		{name: "malformed json", status: http.StatusOK, body: `{"rates":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, WithRetries(3, time.Millisecond))

			_, err := c.FetchRate(context.Background(), "GBP")

			require.Error(t, err)
			var fe *provider.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "GBP", fe.Currency)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, int32(1), calls.Load(), "permanent failures are not retried")
		})
	}
}

func TestFetchRate_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"rates":{"CNY":9.2}}`))
	}, WithRetries(2, time.Millisecond))

	v, err := c.FetchRate(context.Background(), "GBP")

	require.NoError(t, err)
	assert.InDelta(t, 9.2, v, 1e-9)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchRate_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, WithRetries(1, time.Millisecond))

	_, err := c.FetchRate(context.Background(), "EUR")

	require.ErrorIs(t, err, ErrStatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchRate_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	c := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := c.FetchRate(context.Background(), "EUR")

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchRate_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{"CNY":1}}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchRate(ctx, "EUR")

	require.Error(t, err)
}

func TestWithBaseCurrency(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{"CNY":7,"HKD":7.8}}`))
	}, WithBaseCurrency("HKD"))

	v, err := c.FetchRate(context.Background(), "USD")

	require.NoError(t, err)
	assert.InDelta(t, 7.8, v, 1e-9)
	assert.Equal(t, "exchangerate-api", c.Name())
}
