package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"kaichat/domain"
	"kaichat/errors"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 251), G: uint8(y % 241), B: uint8((x + y) % 239), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func Test_Sniff_Accepts_Images_Only_By_Content(t *testing.T) {
	req := require.New(t)

	kind, err := Sniff(encodePNG(t, 4, 4))
	req.NoError(err)
	req.Equal(domain.KindImage, kind)

	_, err = Sniff([]byte("%PDF-1.4 fake document"))
	req.ErrorIs(err, errors.ErrUnsupportedMediaType)

	_, err = Sniff([]byte("just some text"))
	req.ErrorIs(err, errors.ErrUnsupportedMediaType)
}

func Test_Compress_Bounds_Dimensions(t *testing.T) {
	req := require.New(t)
	compressor := Compressor{TargetBytes: 1 << 20, MaxDimension: 64}

	out, err := compressor.Compress(encodePNG(t, 256, 128))
	req.NoError(err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	req.NoError(err)
	req.LessOrEqual(img.Bounds().Dx(), 64)
	req.LessOrEqual(img.Bounds().Dy(), 64)
}

func Test_Compress_Keeps_Small_Images_Unscaled(t *testing.T) {
	req := require.New(t)
	compressor := Compressor{TargetBytes: 1 << 20, MaxDimension: 1920}

	out, err := compressor.Compress(encodePNG(t, 32, 16))
	req.NoError(err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	req.NoError(err)
	req.Equal(32, img.Bounds().Dx())
	req.Equal(16, img.Bounds().Dy())
}

func Test_Compress_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	compressor := Compressor{TargetBytes: 1 << 20, MaxDimension: 1920}

	_, err := compressor.Compress([]byte("not an image at all"))
	req.ErrorIs(err, errors.ErrCompressionFailed)
}
