// Package objectstore reads uploaded files from S3-compatible storage.
package objectstore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when the object key does not exist
var ErrNotFound = errors.New("object not found")

// Store abstracts a single bucket of S3-compatible object storage
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// FileType returns the lower-case extension of an object key without the
// dot, e.g. "csv" for "uploads/2024/data.CSV"
func FileType(key string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
}

// ContentType guesses the content type of a file type
func ContentType(fileType string) string {
	switch strings.ToLower(fileType) {
	case "csv":
		return "text/csv"
	case "txt":
		return "text/plain"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "xls":
		return "application/vnd.ms-excel"
	case "json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// ReadAll fetches an object fully into memory
func ReadAll(ctx context.Context, s Store, key string) ([]byte, ObjectInfo, error) {
	body, info, err := s.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return data, info, nil
}
