package storage

import (
	"context"
	"time"
)

// UploadURL is a presigned PUT target plus the URL the object will be readable at.
type UploadURL struct {
	UploadURL string
	PublicURL string
	Key       string
	ExpiresAt time.Time
}

// Presigner hands out short-lived direct-upload URLs.
type Presigner interface {
	// PresignUpload returns a presigned PUT URL for key restricted to contentType.
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (*UploadURL, error)

	// ObjectURL returns the durable URL of key once uploaded.
	ObjectURL(key string) string
}
