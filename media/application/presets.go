package application

import (
	"github.com/dfryer1193/xbrush/media/domain"
)

const (
	PresetCustom    = "custom"
	PresetThumbnail = "thumbnail"
	PresetPortfolio = "portfolio"
)

var presets = map[string]domain.CompressionOptions{
	PresetThumbnail: {MaxWidth: 400, MaxHeight: 500, Quality: 0.9, OutputFormat: domain.DefaultFormat},
	PresetPortfolio: {MaxWidth: 600, MaxHeight: 800, Quality: 0.85, OutputFormat: domain.DefaultFormat},
}

// PresetOptions returns the fixed options of a named preset.
func PresetOptions(name string) (domain.CompressionOptions, bool) {
	opts, ok := presets[name]
	return opts, ok
}

// CreateThumbnail compresses src to fit 400x500 at quality 0.9.
func (c *ImageCodec) CreateThumbnail(src domain.SourceImage) (*domain.CompressedImage, error) {
	return c.compress(src, presets[PresetThumbnail], PresetThumbnail)
}

// CreatePortfolioImage compresses src to fit 600x800 at quality 0.85.
func (c *ImageCodec) CreatePortfolioImage(src domain.SourceImage) (*domain.CompressedImage, error) {
	return c.compress(src, presets[PresetPortfolio], PresetPortfolio)
}

// CompressPresetAsync is CompressAsync for a named preset. Unknown names use
// the default options.
func (c *ImageCodec) CompressPresetAsync(src domain.SourceImage, name string) <-chan CompressOutcome {
	opts, ok := presets[name]
	if !ok {
		return c.compressAsync(src, domain.CompressionOptions{}, PresetCustom)
	}
	return c.compressAsync(src, opts, name)
}
