package entities

// MirroredMedia is a downloaded photo copied to object storage
type MirroredMedia struct {
	URL         string `json:"url"`
	ObjectKey   string `json:"object_key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}
