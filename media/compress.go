package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"kaichat/errors"

	"golang.org/x/image/draw"
)

const (
	// Quality steps tried until the byte target is met.
	startQuality = 85
	floorQuality = 30
	qualityStep  = 15
)

// Compressor applies the lossy reduction pass run on every image
// before upload: bounded byte target, bounded max dimension.
type Compressor struct {
	TargetBytes  int
	MaxDimension int
}

// Compress decodes the image, downscales it so neither side exceeds
// MaxDimension, and re-encodes it as JPEG, lowering quality until the
// result fits TargetBytes or the quality floor is reached. Any decode
// or encode failure aborts with ErrCompressionFailed; nothing is
// uploaded in that case.
func (c Compressor) Compress(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrCompressionFailed, err)
	}

	src = c.downscale(src)

	for quality := startQuality; quality >= floorQuality; quality -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrCompressionFailed, err)
		}
		if buf.Len() <= c.TargetBytes {
			return buf.Bytes(), nil
		}
		if quality-qualityStep < floorQuality {
			// Floor reached: ship the smallest rendition we have
			// rather than failing a valid image.
			return buf.Bytes(), nil
		}
	}
	return nil, errors.ErrCompressionFailed
}

func (c Compressor) downscale(src image.Image) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if c.MaxDimension <= 0 || longest <= c.MaxDimension {
		return src
	}

	scale := float64(c.MaxDimension) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0,
		int(float64(width)*scale), int(float64(height)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
