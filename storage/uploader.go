package storage

import (
	"context"
	"io"
)

// UploadResult describes where an uploaded object ended up.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores published artifacts, such as standings snapshots.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
