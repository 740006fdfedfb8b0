package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mosaic/internal/adapters/fetcher"
	"mosaic/internal/adapters/handler"
	"mosaic/internal/adapters/metrics"
	"mosaic/internal/adapters/raster"
	"mosaic/internal/core/domain/layout"
	"mosaic/internal/core/port"
	"mosaic/internal/core/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func main() {
	log.Info().Msg("starting mosaic...")

	setDefaults()
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	log.Info().Msg("reading config file...")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("could not read config file")
		}
		log.Info().Msg("no config file, using defaults and environment")
	}

	var logLevel zerolog.Level

	switch viper.GetString("server.log_level") {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var recorder port.MetricsRecorder
	var metricsHandler http.Handler
	if viper.GetBool("metrics.enabled") {
		p := metrics.NewPrometheus()
		recorder = p
		metricsHandler = p.Handler()
	}

	httpFetcher := fetcher.NewHTTP(fetcher.Config{
		URLTemplate: viper.GetString("upstream.url_template"),
		UserAgent:   viper.GetString("upstream.user_agent"),
		Timeout:     viper.GetDuration("upstream.timeout"),
		MaxBytes:    viper.GetInt64("upstream.max_bytes"),
	})

	planner := layout.NewPlanner(layout.Options{
		Gutter:    viper.GetInt("layout.gutter"),
		MaxCanvas: viper.GetInt("layout.max_canvas"),
	})

	limiter := service.NewLimiter(viper.GetInt64("limits.max_in_flight"),
		viper.GetDuration("limits.queue_timeout"), recorder)

	mosaicService := service.NewMosaic(
		httpFetcher,
		raster.NewDecoder(viper.GetInt("decoder.max_dimension")),
		planner,
		raster.NewCompositor(nil),
		raster.NewEncoder(viper.GetInt("encoder.jpeg_quality"), viper.GetInt("encoder.webp_quality")),
		limiter,
		recorder,
	)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(viper.GetInt("server.port"))),
		Handler:           handler.NewRouter(handler.NewMosaic(mosaicService, recorder), metricsHandler),
		ReadHeaderTimeout: viper.GetDuration("server.read_header_timeout"),
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}

	log.Info().Msg("bye")
}

func setDefaults() {
	viper.SetDefault("server.port", 3030)
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.read_header_timeout", "5s")

	viper.SetDefault("upstream.url_template", "https://pbs.twimg.com/media/{ref}?format=jpg&name=large")
	viper.SetDefault("upstream.user_agent", defaultUserAgent)
	viper.SetDefault("upstream.timeout", "5s")
	viper.SetDefault("upstream.max_bytes", 20<<20)

	viper.SetDefault("decoder.max_dimension", 8192)

	viper.SetDefault("layout.gutter", 0)
	viper.SetDefault("layout.max_canvas", 4000)

	viper.SetDefault("encoder.jpeg_quality", 85)
	viper.SetDefault("encoder.webp_quality", 75)

	viper.SetDefault("limits.max_in_flight", 16)
	viper.SetDefault("limits.queue_timeout", "2s")

	viper.SetDefault("metrics.enabled", true)

	_ = viper.BindEnv("server.port", "PORT")
}
