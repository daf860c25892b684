package models

import "time"

// Media kinds accepted by the gallery.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// MediaItem is one gallery entry backed by an object in cloud storage.
type MediaItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	SecureURL string    `json:"secure_url"`
	PublicID  string    `json:"public_id"`
	Format    *string   `json:"format,omitempty"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
