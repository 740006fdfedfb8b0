package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mosaic/internal/core/domain"

	"github.com/rs/zerolog/log"
)

const (
	ContextPlaceholder = "{context}"
	RefPlaceholder     = "{ref}"

	// retries only apply to network level failures, never to HTTP status codes
	maxRetries = 1
)

type Config struct {
	// URLTemplate builds the source URL, e.g. "https://host/{context}/{ref}.jpg".
	URLTemplate string
	UserAgent   string
	// Timeout bounds a single attempt, including reading the body.
	Timeout  time.Duration
	MaxBytes int64
}

// HTTP downloads source images from the upstream image host.
type HTTP struct {
	client *http.Client
	cfg    Config
}

func NewHTTP(cfg Config) *HTTP {
	return &HTTP{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				TLSHandshakeTimeout: cfg.Timeout,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SourceURL returns the upstream URL for ref. No lookup is involved, the same input
// always yields the same URL.
func (h *HTTP) SourceURL(contextID, ref string) string {
	r := strings.NewReplacer(
		ContextPlaceholder, url.PathEscape(contextID),
		RefPlaceholder, url.PathEscape(ref),
	)
	return r.Replace(h.cfg.URLTemplate)
}

// Fetch returns the byte content of the image behind ref.
func (h *HTTP) Fetch(ctx context.Context, contextID, ref string) ([]byte, error) {
	path := h.SourceURL(contextID, ref)

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var buf []byte
		buf, err = h.download(ctx, ref, path)
		if err == nil {
			return buf, nil
		}

		if ctx.Err() != nil || !retryable(err) {
			break
		}

		log.Debug().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("retrying download")
	}

	if ctx.Err() != nil {
		log.Debug().Str("path", path).Msg("download abandoned")
	} else {
		log.Error().Err(err).Str("path", path).Send()
	}

	return nil, err
}

func (h *HTTP) download(ctx context.Context, ref, path string) ([]byte, error) {
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchUnreachable, Ref: ref,
			Err: fmt.Errorf("error creating request %w", err)}
	}

	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,*/*")
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return nil, classify(ref, fmt.Errorf("error executing request %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &domain.FetchError{Kind: domain.FetchHTTPStatus, Ref: ref, StatusCode: res.StatusCode}
	}

	if h.cfg.MaxBytes > 0 && res.ContentLength > h.cfg.MaxBytes {
		return nil, &domain.FetchError{Kind: domain.FetchTooLarge, Ref: ref}
	}

	body := io.Reader(res.Body)
	if h.cfg.MaxBytes > 0 {
		body = io.LimitReader(res.Body, h.cfg.MaxBytes+1)
	}

	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, classify(ref, fmt.Errorf("error reading response %w", err))
	}

	if h.cfg.MaxBytes > 0 && int64(len(buf)) > h.cfg.MaxBytes {
		return nil, &domain.FetchError{Kind: domain.FetchTooLarge, Ref: ref}
	}

	return buf, nil
}

func classify(ref string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.FetchError{Kind: domain.FetchTimeout, Ref: ref, Err: err}
	}

	return &domain.FetchError{Kind: domain.FetchUnreachable, Ref: ref, Err: err}
}

func retryable(err error) bool {
	var fe *domain.FetchError
	return errors.As(err, &fe) && fe.Kind == domain.FetchUnreachable
}
