// Package imaging re-encodes receipt photos as JPEG so they fit the
// webhook payload budget.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	// Registered decoders for receipt photos.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// DefaultMaxPixels rejects decompression bombs before allocating pixels.
const DefaultMaxPixels = 80_000_000

// Preset is one compression tier.
type Preset struct {
	Name         string
	MaxDimension int
	Quality      float64
}

// Presets are tried in order, least aggressive first.
var Presets = []Preset{
	{Name: "high", MaxDimension: 1200, Quality: 0.7},
	{Name: "medium", MaxDimension: 900, Quality: 0.5},
	{Name: "low", MaxDimension: 600, Quality: 0.3},
}

// ErrImageTooLarge is returned for images above the pixel limit.
var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// Compressed is a re-encoded JPEG.
type Compressed struct {
	Bytes     []byte
	Preset    string
	SizeBytes int64
	Width     int
	Height    int
}

// Compressor decodes, downscales and re-encodes images.
type Compressor struct {
	maxPixels int
}

// NewCompressor creates a compressor with the default pixel limit.
func NewCompressor() *Compressor {
	return &Compressor{maxPixels: DefaultMaxPixels}
}

// Compress scales the image so neither side exceeds maxDimension (never
// upscaling), flattens it onto white and encodes JPEG at quality (0–1).
func (c *Compressor) Compress(data []byte, maxDimension int, quality float64) (*Compressed, error) {
	img, err := c.decode(data)
	if err != nil {
		return nil, err
	}
	return encode(img, Preset{Name: "custom", MaxDimension: maxDimension, Quality: quality})
}

// CompressProgressively walks Presets and returns the first result that fits
// maxSizeBytes. It never returns an over-budget result: when even the last
// preset is too large the error wraps domain.ErrOverBudget.
func (c *Compressor) CompressProgressively(data []byte, maxSizeBytes int64) (*Compressed, error) {
	img, err := c.decode(data)
	if err != nil {
		return nil, err
	}

	var smallest int64
	for _, p := range Presets {
		out, err := encode(img, p)
		if err != nil {
			return nil, err
		}
		if out.SizeBytes <= maxSizeBytes {
			return out, nil
		}
		smallest = out.SizeBytes
	}
	return nil, fmt.Errorf("%w: %d bytes at preset %q, budget %d",
		domain.ErrOverBudget, smallest, Presets[len(Presets)-1].Name, maxSizeBytes)
}

func (c *Compressor) decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if c.maxPixels > 0 && cfg.Width*cfg.Height > c.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func encode(src image.Image, p Preset) (*Compressed, error) {
	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), p.MaxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(p.Quality)}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}

	return &Compressed{
		Bytes:     buf.Bytes(),
		Preset:    p.Name,
		SizeBytes: int64(buf.Len()),
		Width:     w,
		Height:    h,
	}, nil
}

// FitWithin returns the size of a w×h image uniformly scaled so neither side
// exceeds maxDimension. Images already within bounds keep their size.
func FitWithin(w, h, maxDimension int) (int, int) {
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return w, h
	}
	scale := math.Min(float64(maxDimension)/float64(w), float64(maxDimension)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(nw, 1), max(nh, 1)
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	return min(max(v, 1), 100)
}
