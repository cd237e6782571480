package api

// Image is a compressed image as returned by the images endpoints.
// DataURI is omitted from listings.
type Image struct {
	ID             string `json:"id,omitempty"`
	FileName       string `json:"file_name"`
	Format         string `json:"format"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	Size           int64  `json:"size"`
	SizeLabel      string `json:"size_label"`
	Hash           string `json:"hash,omitempty"`
	DataURI        string `json:"data_uri,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}
