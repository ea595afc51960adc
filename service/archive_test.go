package service

import (
	"context"
	"testing"

	"github.com/fieldline/fieldline/config"
)

func TestNewArchiveService(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "snapshots",
		UseSSL:    false,
	}

	svc, err := NewArchiveService(cfg)
	// Client creation succeeds without a live server; the connection is only
	// made on first operation.
	if err != nil {
		t.Fatalf("NewArchiveService failed: %v", err)
	}
	if svc == nil {
		t.Fatal("Expected non-nil service")
	}
	if svc.bucket != "snapshots" {
		t.Errorf("Expected bucket 'snapshots', got '%s'", svc.bucket)
	}
}

func TestNewArchiveServiceInvalidEndpoint(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "http://not an endpoint",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "snapshots",
	}

	if _, err := NewArchiveService(cfg); err == nil {
		t.Error("Expected error for malformed endpoint")
	}
}

func TestArchiveSnapshotCancelledContext(t *testing.T) {
	svc, err := NewArchiveService(&config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "test",
		SecretKey:  "test",
		Bucket:     "snapshots",
		ExpireDays: 7,
	})
	if err != nil {
		t.Skip("Could not create archive service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.ArchiveSnapshot(ctx, "tenant1", "doc-1", "snap-1", "content"); err == nil {
		t.Error("Expected error with cancelled context")
	}
}
