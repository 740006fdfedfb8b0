package fetcher

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"mosaic/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(srvURL string) Config {
	return Config{
		URLTemplate: srvURL + "/{context}/{ref}",
		UserAgent:   "mosaic-test",
		Timeout:     500 * time.Millisecond,
		MaxBytes:    64,
	}
}

func TestHTTP_SourceURL(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		contextID string
		ref       string
		want      string
	}{
		{
			name:      "ref only",
			template:  "https://pbs.twimg.com/media/{ref}?format=jpg&name=large",
			contextID: "123",
			ref:       "abc",
			want:      "https://pbs.twimg.com/media/abc?format=jpg&name=large",
		},
		{
			name:      "context and ref",
			template:  "https://img.example/{context}/{ref}.png",
			contextID: "123",
			ref:       "abc",
			want:      "https://img.example/123/abc.png",
		},
		{
			name:      "segments are escaped",
			template:  "https://img.example/{context}/{ref}",
			contextID: "a b",
			ref:       "../x?y",
			want:      "https://img.example/a%20b/..%2Fx%3Fy",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHTTP(Config{URLTemplate: tc.template})
			assert.Equal(t, tc.want, h.SourceURL(tc.contextID, tc.ref))
		})
	}
}

func TestHTTP_Fetch(t *testing.T) {
	tests := []struct {
		name       string
		handler    func(w http.ResponseWriter, r *http.Request)
		want       []byte
		wantKind   domain.FetchErrorKind
		wantStatus int
		wantHits   int32
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("image bytes"))
			},
			want:     []byte("image bytes"),
			wantHits: 1,
		},
		{
			name: "not found is not retried",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantKind:   domain.FetchHTTPStatus,
			wantStatus: http.StatusNotFound,
			wantHits:   1,
		},
		{
			name: "server error is not retried",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantKind:   domain.FetchHTTPStatus,
			wantStatus: http.StatusBadGateway,
			wantHits:   1,
		},
		{
			name: "declared length over limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Length", strconv.Itoa(65))
				_, _ = w.Write(bytes.Repeat([]byte{1}, 65))
			},
			wantKind: domain.FetchTooLarge,
			wantHits: 1,
		},
		{
			name: "streamed body over limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				for range 10 {
					_, _ = w.Write(bytes.Repeat([]byte{1}, 10))
					w.(http.Flusher).Flush()
				}
			},
			wantKind: domain.FetchTooLarge,
			wantHits: 1,
		},
		{
			name: "exactly at limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(bytes.Repeat([]byte{7}, 64))
			},
			want:     bytes.Repeat([]byte{7}, 64),
			wantHits: 1,
		},
		{
			name: "slow upstream times out",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			wantKind: domain.FetchTimeout,
			wantHits: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				assert.Equal(t, "/123/aaa", r.URL.Path)
				assert.Equal(t, "mosaic-test", r.Header.Get("User-Agent"))
				tc.handler(w, r)
			}))
			defer srv.Close()

			res, err := NewHTTP(testConfig(srv.URL)).Fetch(t.Context(), "123", "aaa")
			if tc.wantKind != "" {
				var fe *domain.FetchError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tc.wantKind, fe.Kind)
				assert.Equal(t, "aaa", fe.Ref)
				assert.Equal(t, tc.wantStatus, fe.StatusCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, res)
			}
			assert.Equal(t, tc.wantHits, hits.Load())
		})
	}
}

func TestHTTP_RetriesDroppedConnectionOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte("second try"))
	}))
	defer srv.Close()

	res, err := NewHTTP(testConfig(srv.URL)).Fetch(t.Context(), "123", "aaa")
	require.NoError(t, err)
	assert.Equal(t, []byte("second try"), res)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTP_GivesUpAfterOneRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer srv.Close()

	_, err := NewHTTP(testConfig(srv.URL)).Fetch(t.Context(), "123", "aaa")

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.FetchUnreachable, fe.Kind)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTP_CancelledCallerIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTP(testConfig(srv.URL)).Fetch(ctx, "123", "aaa")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), hits.Load())
}
