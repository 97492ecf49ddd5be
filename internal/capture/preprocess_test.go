package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStretch(t *testing.T) {
	cases := map[uint8]uint8{
		0: 0, 30: 0, 50: 0, 51: 51, 128: 128, 199: 199, 200: 255, 230: 255, 255: 255,
	}
	for in, want := range cases {
		assert.Equal(t, want, Stretch(in), "Stretch(%d)", in)
	}
}

func TestTargetSize(t *testing.T) {
	w, h := targetSize(100, 50)
	assert.Equal(t, [2]int{MinSide, MinSide}, [2]int{w, h})

	w, h = targetSize(3000, 100)
	assert.Equal(t, [2]int{3000, MinSide}, [2]int{w, h})

	w, h = targetSize(4000, 5000)
	assert.Equal(t, [2]int{4000, 5000}, [2]int{w, h})
}

func TestNormalizeImage_UpscalesSmallImage(t *testing.T) {
	raw := encodePNG(t, 20, 10, color.RGBA{R: 128, G: 30, B: 220, A: 255})

	img, err := NormalizeImage(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, MinSide, img.Width)
	assert.Equal(t, MinSide, img.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, MinSide, MinSide), decoded.Bounds())

	// 中间像素：R 保持中间值，G 被压到0，B 被推到255
	r, g, b, _ := decoded.At(MinSide/2, MinSide/2).RGBA()
	assert.InDelta(t, 128, int(r>>8), 6)
	assert.InDelta(t, 0, int(g>>8), 6)
	assert.InDelta(t, 255, int(b>>8), 6)
}

func TestNormalizeImage_KeepsLargerSide(t *testing.T) {
	raw := encodePNG(t, MinSide+10, 4, color.White)

	img, err := NormalizeImage(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, MinSide+10, img.Width)
	assert.Equal(t, MinSide, img.Height)
}

func TestNormalizeImage_TransparentBecomesWhite(t *testing.T) {
	raw := encodePNG(t, 8, 8, color.RGBA{})

	img, err := NormalizeImage(context.Background(), raw)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(10, 10).RGBA()
	assert.GreaterOrEqual(t, r>>8, uint32(250))
	assert.GreaterOrEqual(t, g>>8, uint32(250))
	assert.GreaterOrEqual(t, b>>8, uint32(250))
}

func TestNormalizeImage_DecodeError(t *testing.T) {
	_, err := NormalizeImage(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = NormalizeImage(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNormalizeImage_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NormalizeImage(ctx, encodePNG(t, 4, 4, color.Black))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeImage_RejectsOversizedImage(t *testing.T) {
	// 全黑灰度图压缩后很小，但解码后超过像素上限
	img := image.NewGray(image.Rect(0, 0, 8000, 6000))
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	require.NoError(t, enc.Encode(&buf, img))
	require.Less(t, buf.Len(), 1<<20)

	_, err := NormalizeImage(context.Background(), buf.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "8000x6000")
}

func TestDecodeDataURI(t *testing.T) {
	raw, err := DecodeDataURI("data:image/jpeg;base64,YWJj")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), raw)

	raw, err = DecodeDataURI("  YWJj\n")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), raw)

	assert.Equal(t, "YWJj", StripDataURIPrefix("data:image/png;base64,YWJj"))
	assert.Equal(t, "YWJj", StripDataURIPrefix("YWJj"))

	_, err = DecodeDataURI("data:image/jpeg;base64,@@@")
	assert.ErrorIs(t, err, ErrDecode)
}
