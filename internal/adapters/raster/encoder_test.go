package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"mosaic/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebp "golang.org/x/image/webp"
)

func TestEncoder_Encode(t *testing.T) {
	canvas := solid(120, 70, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
	e := NewEncoder(85, 75)

	t.Run("jpeg", func(t *testing.T) {
		out, err := e.Encode(canvas, domain.JPEG)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", out.ContentType)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Bytes))
		require.NoError(t, err)
		assert.Equal(t, 120, cfg.Width)
		assert.Equal(t, 70, cfg.Height)
	})

	t.Run("webp", func(t *testing.T) {
		out, err := e.Encode(canvas, domain.WebP)
		require.NoError(t, err)
		assert.Equal(t, "image/webp", out.ContentType)

		cfg, err := xwebp.DecodeConfig(bytes.NewReader(out.Bytes))
		require.NoError(t, err)
		assert.Equal(t, 120, cfg.Width)
		assert.Equal(t, 70, cfg.Height)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := e.Encode(canvas, domain.Format("png"))

		var ee *domain.EncodeError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, domain.Format("png"), ee.Format)
	})
}

func TestEncoder_QualityAffectsSize(t *testing.T) {
	noisy := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range noisy.Pix {
		noisy.Pix[i] = uint8(i * 7919 % 251)
		if i%4 == 3 {
			noisy.Pix[i] = 255
		}
	}

	low, err := NewEncoder(10, 10).Encode(noisy, domain.JPEG)
	require.NoError(t, err)
	high, err := NewEncoder(95, 95).Encode(noisy, domain.JPEG)
	require.NoError(t, err)

	assert.Less(t, len(low.Bytes), len(high.Bytes))
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 1, clampQuality(-5))
	assert.Equal(t, 100, clampQuality(400))
	assert.Equal(t, 80, clampQuality(80))
}
