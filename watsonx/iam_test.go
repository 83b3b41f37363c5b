package watsonx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/dispatch"
	"github.com/fwojciec/dispatch/watsonx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iamServer(t *testing.T, calls *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenCache_RequestFormat(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ibm:params:oauth:grant-type:apikey", r.PostForm.Get("grant_type"))
		assert.Equal(t, "secret-key", r.PostForm.Get("apikey"))
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	cache := watsonx.NewTokenCache("secret-key", watsonx.WithIAMURL(srv.URL))
	cred, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", cred.Token)
}

func TestTokenCache_ReusesValidToken(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := iamServer(t, &calls, http.StatusOK, `{"access_token":"abc"}`)
	cache := watsonx.NewTokenCache("key", watsonx.WithIAMURL(srv.URL))

	first, err := cache.Token(context.Background())
	require.NoError(t, err)
	second, err := cache.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenCache_RefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := iamServer(t, &calls, http.StatusOK, `{"access_token":"abc"}`)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	cache := watsonx.NewTokenCache("key",
		watsonx.WithIAMURL(srv.URL),
		watsonx.WithTokenTTL(time.Minute),
		watsonx.WithClock(clock))

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(59 * time.Second)
	mu.Unlock()
	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()
	cred, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, clock(), cred.IssuedAt)
}

func TestTokenCache_ConcurrentCallersShareOneExchange(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := iamServer(t, &calls, http.StatusOK, `{"access_token":"abc"}`)
	cache := watsonx.NewTokenCache("key", watsonx.WithIAMURL(srv.URL))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := cache.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "abc", cred.Token)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenCache_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"errorCode":"BXNIM0415E","errorMessage":"Provided API key could not be found."}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"malformed body", http.StatusOK, `not json`},
		{"missing token", http.StatusOK, `{"token_type":"Bearer"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			srv := iamServer(t, &calls, tt.status, tt.body)
			cache := watsonx.NewTokenCache("key", watsonx.WithIAMURL(srv.URL))

			_, err := cache.Token(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, dispatch.ErrCredential)
			assert.Contains(t, err.Error(), "watsonx:")

			var de *dispatch.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.status, de.Status)
			assert.Equal(t, tt.body, de.Body)

			// Failures are not cached.
			_, err = cache.Token(context.Background())
			require.Error(t, err)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestTokenCache_EmptyAPIKey(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := iamServer(t, &calls, http.StatusOK, `{"access_token":"abc"}`)
	cache := watsonx.NewTokenCache("", watsonx.WithIAMURL(srv.URL))

	_, err := cache.Token(context.Background())
	assert.ErrorIs(t, err, dispatch.ErrCredential)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTokenCache_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	cache := watsonx.NewTokenCache("key", watsonx.WithIAMURL(url))
	_, err := cache.Token(context.Background())
	assert.ErrorIs(t, err, dispatch.ErrCredential)
}
