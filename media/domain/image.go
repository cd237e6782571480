package domain

import (
	"context"
	"io"
	"time"
)

// OutputFormat is the raster MIME type an image is re-encoded to.
type OutputFormat string

const (
	FormatJPEG OutputFormat = "image/jpeg"
	FormatPNG  OutputFormat = "image/png"
	FormatWebP OutputFormat = "image/webp"
)

const (
	DefaultMaxWidth  = 800
	DefaultMaxHeight = 800
	DefaultQuality   = 0.8
	DefaultFormat    = FormatJPEG
)

// SourceImage is an uploaded file as handed over by the caller.
// The codec reads Reader to the end but never closes it.
type SourceImage struct {
	Name     string
	MIMEType string
	Reader   io.Reader
}

// CompressionOptions controls how an image is scaled and re-encoded.
// Zero values are replaced by the package defaults.
type CompressionOptions struct {
	MaxWidth     int
	MaxHeight    int
	Quality      float64
	OutputFormat OutputFormat
}

// CompressedImage is the result of a compress call. It is owned by the caller.
type CompressedImage struct {
	DataURI        string
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	// Size is an estimate derived from the data URI length, not an exact byte count.
	Size     int64
	Format   OutputFormat
	FileName string
}

// Blob is a raw payload decoded back out of a data URI.
type Blob struct {
	MIMEType string
	Data     []byte
}

// StoredImage is a compressed image persisted for an owner (a portfolio model, or none).
type StoredImage struct {
	ID       string
	OwnerID  string
	Role     string
	Position int
	Hash     string
	CompressedImage
	UpdatedAt time.Time
	CreatedAt time.Time
}

const (
	RoleStandalone = "standalone"
	RoleThumbnail  = "thumbnail"
	RolePortfolio  = "portfolio"
)

type ImageRepository interface {
	// SaveImage inserts or replaces an image record
	SaveImage(ctx context.Context, img *StoredImage) error

	// GetImage retrieves an image record, including its data URI
	GetImage(ctx context.Context, id string) (*StoredImage, error)

	// DeleteImage removes a single image record
	DeleteImage(ctx context.Context, id string) error

	// ListByOwner returns every image of an owner ordered by role and position
	ListByOwner(ctx context.Context, ownerID string) ([]*StoredImage, error)

	// DeleteByOwner removes every image of an owner
	DeleteByOwner(ctx context.Context, ownerID string) error
}
