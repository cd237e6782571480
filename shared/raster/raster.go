// Package raster is the decode/draw/encode capability the media codec runs on.
// It uses pure Go decoders and scalers; WebP encoding goes through libwebp.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/chai2010/webp"
	"github.com/dfryer1193/xbrush/media/domain"
	"github.com/gabriel-vasile/mimetype"
	xdraw "golang.org/x/image/draw"
	xwebp "golang.org/x/image/webp"
)

// ErrTooManyPixels is returned by Decode for images above the pixel cap.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Engine decodes, scales and encodes raster images.
type Engine interface {
	Decode(data []byte) (image.Image, error)
	Scale(src image.Image, width, height int) image.Image
	// Encode writes img as format and reports the format actually written.
	Encode(w io.Writer, img image.Image, format domain.OutputFormat, quality float64) (domain.OutputFormat, error)
}

// DefaultMaxPixels caps the decoded area of one image (50 megapixels).
const DefaultMaxPixels = 50_000_000

type engine struct {
	maxPixels int64
}

var _ Engine = engine{}

// Option configures an Engine.
type Option func(*engine)

// WithMaxPixels sets the largest width*height Decode accepts. Values <= 0
// keep the default.
func WithMaxPixels(n int64) Option {
	return func(e *engine) {
		if n > 0 {
			e.maxPixels = n
		}
	}
}

// NewEngine returns the default raster engine.
func NewEngine(opts ...Option) Engine {
	e := engine{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Decode sniffs the payload and decodes it into a pixel-addressable image.
// Dimensions are read from the header first, so oversized images are
// rejected before any pixel buffer is allocated.
func (e engine) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	isWebP := mimetype.Detect(data).Is(string(domain.FormatWebP))

	var cfg image.Config
	var err error
	if isWebP {
		cfg, err = xwebp.DecodeConfig(bytes.NewReader(data))
	} else {
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if err := e.checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	var img image.Image
	if isWebP {
		img, err = xwebp.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if err := e.checkDimensions(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}

	return img, nil
}

func (e engine) checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image bounds: %dx%d", width, height)
	}
	if int64(width)*int64(height) > e.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooManyPixels, width, height, e.maxPixels)
	}
	return nil
}

// Scale renders src into a fresh transparent RGBA surface of the given size.
func (engine) Scale(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// Encode writes img in the requested format. PNG ignores quality. Formats the
// engine cannot produce fall back to PNG.
func (engine) Encode(w io.Writer, img image.Image, format domain.OutputFormat, quality float64) (domain.OutputFormat, error) {
	switch format {
	case domain.FormatJPEG:
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: percent(quality)}); err != nil {
			return "", fmt.Errorf("encode jpeg: %w", err)
		}
		return domain.FormatJPEG, nil
	case domain.FormatWebP:
		if err := webp.Encode(w, img, &webp.Options{Quality: float32(percent(quality))}); err != nil {
			return "", fmt.Errorf("encode webp: %w", err)
		}
		return domain.FormatWebP, nil
	default:
		if err := png.Encode(w, img); err != nil {
			return "", fmt.Errorf("encode png: %w", err)
		}
		return domain.FormatPNG, nil
	}
}

// percent maps a (0,1] quality onto the 1..100 scale encoders expect.
func percent(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
