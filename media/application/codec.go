package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dfryer1193/xbrush/internal/metrics"
	"github.com/dfryer1193/xbrush/media/domain"
	"github.com/dfryer1193/xbrush/shared/raster"
	"github.com/rs/zerolog/log"
)

// canvasDefaultQuality is used when a requested quality is outside (0,1].
const canvasDefaultQuality = 0.92

// sizeEstimateFactor converts a data URI length into an approximate byte count.
// Callers budget against this estimate, so it must stay as-is.
const sizeEstimateFactor = 0.75

// ImageCodec turns uploaded images into downscaled, re-encoded data URIs.
// It holds no per-call state; concurrent calls are independent.
type ImageCodec struct {
	engine raster.Engine
}

func NewImageCodec(engine raster.Engine) *ImageCodec {
	return &ImageCodec{engine: engine}
}

// CompressOutcome is the single value delivered by CompressAsync.
type CompressOutcome struct {
	Image *domain.CompressedImage
	Err   error
}

// Compress reads, decodes, scales and re-encodes src.
// It does not check the declared MIME type; see IsValidImage.
func (c *ImageCodec) Compress(src domain.SourceImage, opts domain.CompressionOptions) (*domain.CompressedImage, error) {
	return c.compress(src, opts, PresetCustom)
}

// CompressAsync runs Compress in the background. The channel is buffered so an
// abandoned result never blocks the worker.
func (c *ImageCodec) CompressAsync(src domain.SourceImage, opts domain.CompressionOptions) <-chan CompressOutcome {
	return c.compressAsync(src, opts, PresetCustom)
}

func (c *ImageCodec) compressAsync(src domain.SourceImage, opts domain.CompressionOptions, preset string) <-chan CompressOutcome {
	out := make(chan CompressOutcome, 1)
	go func() {
		img, err := c.compress(src, opts, preset)
		out <- CompressOutcome{Image: img, Err: err}
	}()
	return out
}

// Await waits for an outcome or for ctx to end. When ctx ends first the
// compress keeps running and its result is discarded.
func Await(ctx context.Context, outcome <-chan CompressOutcome) (*domain.CompressedImage, error) {
	select {
	case o := <-outcome:
		return o.Image, o.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ImageCodec) compress(src domain.SourceImage, opts domain.CompressionOptions, preset string) (*domain.CompressedImage, error) {
	start := time.Now()
	opts = NormalizeOptions(opts)

	result, err := c.run(src, opts)

	status, format, size := "ok", string(opts.OutputFormat), int64(0)
	if err != nil {
		status = "error"
		log.Warn().Err(err).Str("file", src.Name).Str("preset", preset).Msg("Failed to compress image")
	} else {
		format, size = string(result.Format), result.Size
		log.Debug().
			Str("file", src.Name).
			Str("preset", preset).
			Int("width", result.Width).
			Int("height", result.Height).
			Int64("size", result.Size).
			Msg("Compressed image")
	}
	metrics.RecordCompress(preset, format, status, time.Since(start).Seconds(), size)

	return result, err
}

func (c *ImageCodec) run(src domain.SourceImage, opts domain.CompressionOptions) (*domain.CompressedImage, error) {
	if src.Reader == nil {
		return nil, fmt.Errorf("%w: %s: no content", domain.ErrRead, src.Name)
	}

	data, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRead, src.Name, err)
	}

	img, err := c.engine.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDecode, src.Name, err)
	}

	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	width, height := FitWithin(origWidth, origHeight, opts.MaxWidth, opts.MaxHeight)

	surface := c.engine.Scale(img, width, height)

	var buf bytes.Buffer
	format, err := c.engine.Encode(&buf, surface, opts.OutputFormat, opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEncode, src.Name, err)
	}

	dataURI := EncodeDataURI(string(format), buf.Bytes())

	return &domain.CompressedImage{
		DataURI:        dataURI,
		Width:          width,
		Height:         height,
		OriginalWidth:  origWidth,
		OriginalHeight: origHeight,
		Size:           EstimateSize(dataURI),
		Format:         format,
		FileName:       src.Name,
	}, nil
}

// NormalizeOptions fills unset fields with defaults. A quality outside (0,1]
// falls back to the canvas default of 0.92.
func NormalizeOptions(opts domain.CompressionOptions) domain.CompressionOptions {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = domain.DefaultMaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = domain.DefaultMaxHeight
	}
	switch {
	case opts.Quality == 0:
		opts.Quality = domain.DefaultQuality
	case opts.Quality < 0 || opts.Quality > 1 || math.IsNaN(opts.Quality):
		opts.Quality = canvasDefaultQuality
	}
	switch opts.OutputFormat {
	case "":
		opts.OutputFormat = domain.DefaultFormat
	case "image/jpg":
		opts.OutputFormat = domain.FormatJPEG
	}
	return opts
}

// DefaultCompressionOptions returns the options used when none are given.
func DefaultCompressionOptions() domain.CompressionOptions {
	return domain.CompressionOptions{
		MaxWidth:     domain.DefaultMaxWidth,
		MaxHeight:    domain.DefaultMaxHeight,
		Quality:      domain.DefaultQuality,
		OutputFormat: domain.DefaultFormat,
	}
}

// FitWithin scales (width, height) uniformly so it fits inside the bounds.
// Images already inside the bounds are returned unchanged; nothing is upscaled.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	w := clamp(roundHalfUp(float64(width)*ratio), 1, maxWidth)
	h := clamp(roundHalfUp(float64(height)*ratio), 1, maxHeight)
	return w, h
}

// EstimateSize approximates the payload size of a data URI.
func EstimateSize(dataURI string) int64 {
	return int64(roundHalfUp(float64(len(dataURI)) * sizeEstimateFactor))
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
