package storage

import (
	"context"
	"io"
)

type ArchiveResult struct {
	Key      string
	Location string
	ETag     string
}

// SnapshotArchiver stores final tournament snapshots in object storage.
type SnapshotArchiver interface {
	Archive(ctx context.Context, key string, contentType string, reader io.Reader) (*ArchiveResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// NoopArchiver discards snapshots. Used when R2 is not configured.
type NoopArchiver struct{}

func (NoopArchiver) Archive(ctx context.Context, key string, contentType string, reader io.Reader) (*ArchiveResult, error) {
	return &ArchiveResult{Key: key}, nil
}

func (NoopArchiver) Delete(ctx context.Context, key string) error { return nil }

func (NoopArchiver) GetPublicURL(key string) string { return "" }
