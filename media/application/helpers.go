package application

import (
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/dfryer1193/xbrush/media/domain"
)

var (
	validImageTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/jpg":  {},
		"image/png":  {},
		"image/webp": {},
	}

	dataURIRegex = regexp.MustCompile(`^data:([^;,]+);base64,(.*)$`)

	sizeUnits = []string{"Bytes", "KB", "MB", "GB"}
)

// IsValidImage reports whether the declared MIME type of src is a supported input type.
func IsValidImage(src domain.SourceImage) bool {
	return IsValidImageType(src.MIMEType)
}

// IsValidImageType reports whether mimeType is exactly one of the supported input types.
func IsValidImageType(mimeType string) bool {
	_, ok := validImageTypes[mimeType]
	return ok
}

// FormatFileSize renders a byte count with 1024-based units, e.g. "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}

	value := float64(bytes)
	unit := 0
	for math.Abs(value) >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[unit]
}

// EncodeDataURI wraps data as data:<mime>;base64,<payload>.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Base64ToBlob is the inverse of EncodeDataURI.
func Base64ToBlob(dataURI string) (*domain.Blob, error) {
	matches := dataURIRegex.FindStringSubmatch(dataURI)
	if matches == nil {
		return nil, fmt.Errorf("%w: expected data:<mime>;base64,<payload>", domain.ErrFormat)
	}

	data, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFormat, err)
	}

	return &domain.Blob{
		MIMEType: matches[1],
		Data:     data,
	}, nil
}
