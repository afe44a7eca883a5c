package storage

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/trade_compliance_ocr/internal/processor"
)

func jpegBase64(t *testing.T, width, height int, shade func(x, y int) uint8) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := shade(x, y)
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCacheKeyDistinguishesDownscaledImages(t *testing.T) {
	opts := processor.Options{Preprocess: true, MaxDimension: 200}

	invoiceA, err := processor.NormalizeDocument(jpegBase64(t, 480, 240, func(x, _ int) uint8 { return uint8(x) }), "image/jpeg", opts)
	require.NoError(t, err)
	invoiceB, err := processor.NormalizeDocument(jpegBase64(t, 260, 520, func(_, y int) uint8 { return uint8(255 - y) }), "image/jpeg", opts)
	require.NoError(t, err)
	require.True(t, invoiceA.Processed)
	require.True(t, invoiceB.Processed)

	// re-encoded JPEGs share their header bytes
	assert.Equal(t, invoiceA.Base64[:40], invoiceB.Base64[:40])

	c := NewResultCache(DefaultCacheConfig)
	keyA := c.CacheKey(invoiceA.Base64, route)
	keyB := c.CacheKey(invoiceB.Base64, route)
	require.NotEqual(t, keyA, keyB)

	c.Put(keyA, resultFor("Seller A"))
	_, ok := c.Get(keyB)
	assert.False(t, ok)
}
