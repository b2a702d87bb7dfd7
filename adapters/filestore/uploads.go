package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultChunkSize is the copy buffer used for uploads
const DefaultChunkSize = 64 * 1024

// Uploads implements ports.UploadStorage on the local filesystem
type Uploads struct {
	dir       string
	chunkSize int
	maxBytes  int64
}

// NewUploads stores uploads under dir. maxBytes <= 0 disables the size limit.
func NewUploads(dir string, maxBytes int64) *Uploads {
	return &Uploads{dir: dir, chunkSize: DefaultChunkSize, maxBytes: maxBytes}
}

// Store saves r under a unique name derived from filename and returns its path
func (u *Uploads) Store(_ context.Context, r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Never trust client paths
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filename, ext)
	timestamp := time.Now().Format("20060102_150405")
	uniqueName := fmt.Sprintf("%s_%s_%s%s", baseName, timestamp, uuid.New().String()[:8], ext)
	filePath := filepath.Join(u.dir, uniqueName)

	dest, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dest.Close()

	src := r
	if u.maxBytes > 0 {
		src = io.LimitReader(r, u.maxBytes+1)
	}
	n, err := io.CopyBuffer(dest, src, make([]byte, u.chunkSize))
	if err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to copy file contents: %w", err)
	}
	if u.maxBytes > 0 && n > u.maxBytes {
		os.Remove(filePath)
		return "", fmt.Errorf("upload %s exceeds %d bytes", filename, u.maxBytes)
	}
	return filePath, nil
}

// Open returns a reader for a stored file
func (u *Uploads) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file; missing files are not an error
func (u *Uploads) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
