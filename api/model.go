package api

type Model struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Bio       string  `json:"bio"`
	BioHTML   string  `json:"bio_html"`
	Snippet   string  `json:"snippet"`
	Thumbnail *Image  `json:"thumbnail,omitempty"`
	Portfolio []Image `json:"portfolio"`
	// ImageBytes is the estimated size of every attached image
	ImageBytes int64  `json:"image_bytes"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}
