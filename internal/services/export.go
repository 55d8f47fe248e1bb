package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/connectapp/apiserver/types"
	"github.com/google/uuid"
)

const exportContentType = "application/json"

// SnapshotRepository reads a consistent copy of all content.
type SnapshotRepository interface {
	Snapshot(ctx context.Context) (types.Snapshot, error)
}

// ObjectUploader stores export objects.
type ObjectUploader interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ExportService uploads content snapshots to object storage.
type ExportService struct {
	repo    SnapshotRepository
	storage ObjectUploader
}

func NewExportService(repo SnapshotRepository, storage ObjectUploader) *ExportService {
	return &ExportService{repo: repo, storage: storage}
}

// Export writes a snapshot and returns the object key it was stored under.
func (s *ExportService) Export(ctx context.Context) (string, error) {
	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := fmt.Sprintf("exports/%s-%s.json", snapshot.GeneratedAt.Format("20060102T150405Z"), uuid.NewString())
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	return key, nil
}
