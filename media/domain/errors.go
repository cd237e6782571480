package domain

import "errors"

var (
	// ErrRead means the source could not be read.
	ErrRead = errors.New("image read failed")
	// ErrDecode means the bytes do not parse as a supported image.
	ErrDecode = errors.New("image decode failed")
	// ErrEncode means the raster surface could not be encoded.
	ErrEncode = errors.New("image encode failed")
	// ErrFormat means a data URI does not have the data:<mime>;base64,<payload> shape.
	ErrFormat = errors.New("malformed data URI")
	// ErrImageNotFound is returned by repositories for unknown image IDs.
	ErrImageNotFound = errors.New("image not found")
)
