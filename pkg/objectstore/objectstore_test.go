package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/config"
)

func TestFileType(t *testing.T) {
	tests := map[string]string{
		"uploads/2024/data.CSV": "csv",
		"a.b/report.xlsx":       "xlsx",
		"noext":                 "",
		"dir/.hidden":           "hidden",
	}
	for key, want := range tests {
		if got := FileType(key); got != want {
			t.Errorf("FileType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("CSV"); got != "text/csv" {
		t.Errorf("ContentType(CSV) = %s", got)
	}
	if got := ContentType("parquet"); got != "application/octet-stream" {
		t.Errorf("ContentType(parquet) = %s", got)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Put(ctx, "k.csv", strings.NewReader("a,b\n1,2\n"), -1, "text/csv"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, info, err := ReadAll(ctx, s, "k.csv")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "a,b\n1,2\n" || info.Size != 8 || info.ContentType != "text/csv" || info.ETag == "" {
		t.Errorf("got %q, %+v", data, info)
	}

	if _, err := s.Stat(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat(missing) err = %v, want ErrNotFound", err)
	}
}

func TestNewMinioStoreValidates(t *testing.T) {
	logger := zaptest.NewLogger(t)
	if _, err := NewMinioStore(nil, logger); err == nil {
		t.Error("expected an error without configuration")
	}
	cfg := &config.ObjectStoreConfig{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "uploads",
	}
	if _, err := NewMinioStore(cfg, logger); err == nil {
		t.Error("expected an error for an endpoint with a scheme")
	}

	cfg.Endpoint = "localhost:9000"
	s, err := NewMinioStore(cfg, logger)
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}
	if s.bucket != "uploads" {
		t.Errorf("bucket = %s", s.bucket)
	}
}
