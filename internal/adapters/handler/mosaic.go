package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mosaic/internal/core/domain"
	"mosaic/internal/core/port"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

const (
	RequestIDHeader = "X-Request-Id"

	// statusClientClosed is only recorded in metrics; nobody is left to read it.
	statusClientClosed = 499
)

type Mosaic struct {
	creator port.MosaicCreator
	metrics port.MetricsRecorder
}

func NewMosaic(creator port.MosaicCreator, metrics port.MetricsRecorder) *Mosaic {
	return &Mosaic{creator: creator, metrics: metrics}
}

// NewRouter mounts the mosaic route next to the liveness and, when given, metrics routes.
func NewRouter(m *Mosaic, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.Handle("GET /{format}/{context}", m)
	mux.Handle("GET /{format}/{context}/{refs...}", m)
	return mux
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (m *Mosaic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id := requestID()
	w.Header().Set(RequestIDHeader, id)

	l := log.With().Str("requestId", id).Str("path", r.URL.Path).Logger()
	ctx := l.WithContext(r.Context())

	req, err := domain.NewMosaicRequest(r.PathValue("format"), r.PathValue("context"), r.PathValue("refs"))
	if err != nil {
		l.Debug().Err(err).Msg("rejected request")
		m.fail(w, "invalid", start, http.StatusBadRequest, err.Error())
		return
	}

	out, err := m.creator.Create(ctx, req)
	if err != nil {
		if errors.Is(r.Context().Err(), context.Canceled) {
			l.Debug().Msg("client went away")
			m.observe(string(req.Format), statusClientClosed, start)
			return
		}

		status, reason := statusFor(err)
		if status >= http.StatusInternalServerError {
			l.Warn().Err(err).Int("status", status).Msg("failed to create mosaic")
		}
		m.fail(w, string(req.Format), start, status, reason)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Bytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Bytes); err != nil {
		l.Debug().Err(err).Msg("failed to write response")
	}

	m.observe(string(req.Format), http.StatusOK, start)
}

// statusFor maps a pipeline error to a response status and a reason safe to show clients.
func statusFor(err error) (int, string) {
	var (
		ve *domain.ValidationError
		fe *domain.FetchError
		de *domain.DecodeError
		ee *domain.EncodeError
	)

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, domain.ErrOverloaded):
		return http.StatusServiceUnavailable, "server busy, try again later"
	case errors.As(err, &fe):
		if fe.Kind == domain.FetchTimeout {
			return http.StatusGatewayTimeout, "timed out fetching image " + fe.Ref
		}
		return http.StatusBadGateway, "could not fetch image " + fe.Ref
	case errors.As(err, &de):
		return http.StatusBadGateway, "could not decode image " + de.Ref
	case errors.As(err, &ee):
		return http.StatusInternalServerError, "could not encode mosaic"
	}

	return http.StatusInternalServerError, "internal error"
}

func (m *Mosaic) fail(w http.ResponseWriter, format string, start time.Time, status int, reason string) {
	http.Error(w, reason, status)
	m.observe(format, status, start)
}

func (m *Mosaic) observe(format string, status int, start time.Time) {
	if m.metrics != nil {
		m.metrics.ObserveRequest(format, status, time.Since(start))
	}
}

func requestID() string {
	id, err := uuid.NewV4()
	if err != nil {
		log.Error().Err(err).Msg("could not generate request id")
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return id.String()
}
