// Package storage provides the remote asset uploader used by the upload
// endpoint. It has no relationship to image generation beyond sharing
// process-wide credentials.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// UploadParams describes one binary asset to persist.
type UploadParams struct {
	// Filename is the client-supplied name; only its extension is kept
	Filename string

	// Data is the raw asset bytes
	Data []byte

	// ContentType is the MIME type reported by the client
	ContentType string
}

// Uploader persists an asset with a storage provider and returns its public
// reference.
type Uploader interface {
	// Upload stores the asset and returns a publicly reachable URL.
	Upload(ctx context.Context, params UploadParams) (string, error)
}

// objectKey builds a collision-free storage key, preserving the original
// file extension so content negotiation keeps working.
func objectKey(filename string) string {
	return uuid.New().String() + filepath.Ext(filename)
}

// FileUploader stores assets on the local filesystem. It exists for
// development deployments without storage credentials; the returned
// reference is a relative path, not a real public URL.
type FileUploader struct {
	// Dir is the target directory (created on demand)
	Dir string
}

// Upload writes the asset under Dir and returns its relative path.
func (u *FileUploader) Upload(ctx context.Context, params UploadParams) (string, error) {
	if len(params.Data) == 0 {
		return "", fmt.Errorf("storage: no data to upload")
	}

	dir := u.Dir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("storage: failed to create upload directory: %w", err)
	}

	path := filepath.Join(dir, objectKey(params.Filename))
	if err := os.WriteFile(path, params.Data, 0600); err != nil {
		return "", fmt.Errorf("storage: failed to write asset: %w", err)
	}

	return path, nil
}

// Ensure FileUploader implements Uploader at compile time.
var _ Uploader = (*FileUploader)(nil)
