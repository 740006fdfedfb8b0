package service

import (
	"context"
	"fmt"
	"time"

	"mosaic/internal/core/domain"
	"mosaic/internal/core/port"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Mosaic struct {
	fetcher    port.ImageFetcher
	decoder    port.ImageDecoder
	planner    port.LayoutPlanner
	compositor port.Compositor
	encoder    port.Encoder
	limiter    *Limiter
	metrics    port.MetricsRecorder
}

func NewMosaic(fetcher port.ImageFetcher,
	decoder port.ImageDecoder,
	planner port.LayoutPlanner,
	compositor port.Compositor,
	encoder port.Encoder,
	limiter *Limiter,
	metrics port.MetricsRecorder) *Mosaic {
	if metrics == nil {
		metrics = noopRecorder{}
	}

	return &Mosaic{
		fetcher:    fetcher,
		decoder:    decoder,
		planner:    planner,
		compositor: compositor,
		encoder:    encoder,
		limiter:    limiter,
		metrics:    metrics,
	}
}

// Create runs the whole pipeline for one request. Any failing image fails the request;
// there is no partial mosaic.
func (m *Mosaic) Create(ctx context.Context, req domain.MosaicRequest) (domain.EncodedOutput, error) {
	l := zerolog.Ctx(ctx).With().
		Str("format", string(req.Format)).
		Str("contextId", req.ContextID).
		Strs("refs", req.ImageRefs).
		Logger()

	release, err := m.limiter.Acquire(ctx)
	if err != nil {
		return domain.EncodedOutput{}, err
	}
	defer release()

	start := time.Now()

	images, err := m.load(ctx, req)
	if err != nil {
		l.Warn().Err(err).Msg("failed to load source images")
		return domain.EncodedOutput{}, err
	}
	downloaded := time.Since(start)
	m.metrics.ObserveStage(port.StageFetch, downloaded)

	sizes := make([]domain.Size, len(images))
	for i, img := range images {
		sizes[i] = img.Size()
	}

	composeStart := time.Now()
	plan, err := m.planner.Plan(sizes)
	if err != nil {
		return domain.EncodedOutput{}, fmt.Errorf("planning layout: %w", err)
	}

	canvas, err := m.compositor.Composite(ctx, images, plan)
	if err != nil {
		return domain.EncodedOutput{}, fmt.Errorf("compositing: %w", err)
	}
	composed := time.Since(composeStart)
	m.metrics.ObserveStage(port.StageComposite, composed)

	encodeStart := time.Now()
	out, err := m.encoder.Encode(canvas, req.Format)
	if err != nil {
		l.Error().Err(err).Msg("failed to encode mosaic")
		return domain.EncodedOutput{}, err
	}
	encoded := time.Since(encodeStart)
	m.metrics.ObserveStage(port.StageEncode, encoded)

	l.Info().
		Dur("total", time.Since(start)).
		Dur("download", downloaded).
		Dur("mosaic", composed).
		Dur("encoding", encoded).
		Str("size", fmt.Sprintf("%dx%d", plan.CanvasWidth, plan.CanvasHeight)).
		Int("bytes", len(out.Bytes)).
		Msg("mosaic created")

	return out, nil
}

// load fetches and decodes every image concurrently. Results are stored by input index,
// so completion order never changes slot assignment. The first failure cancels the rest.
func (m *Mosaic) load(ctx context.Context, req domain.MosaicRequest) ([]*domain.SourceImage, error) {
	g, gctx := errgroup.WithContext(ctx)
	images := make([]*domain.SourceImage, len(req.ImageRefs))

	for i, ref := range req.ImageRefs {
		g.Go(func() error {
			data, err := m.fetcher.Fetch(gctx, req.ContextID, ref)
			if err != nil {
				return err
			}

			// a sibling already failed, the decode would be thrown away
			if err := gctx.Err(); err != nil {
				return err
			}

			img, err := m.decoder.Decode(ref, data)
			if err != nil {
				return err
			}

			images[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return images, nil
}
