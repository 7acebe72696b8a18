// Package gcs wraps the Google Cloud Storage operations the cleaning
// service needs: fetching a source dataset by URI and publishing the output
// artifacts next to it.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// StorageService abstracts the storage operations so the service layer can
// be tested against an in-memory fake.
type StorageService interface {
	// FetchObject downloads the object bytes behind a gs:// URI.
	FetchObject(ctx context.Context, gcsURI string) ([]byte, error)

	// UploadBytes writes data to bucket/objectName with the given content type.
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
}

// GCSStorageService is the concrete StorageService backed by Google Cloud
// Storage. It assumes Application Default Credentials are configured.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

// FetchObject downloads the file bytes from the given GCS URI.
func (s *GCSStorageService) FetchObject(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := SplitURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("FetchObject: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchObject: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchObject: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchObject: reading bytes: %w", err)
	}
	return data, nil
}

// UploadBytes writes data to a GCS object, finalizing the upload on Close.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadBytes: creating storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadBytes: copying to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadBytes: finalizing upload: %w", err)
	}
	return nil
}

// SplitURI splits a gs://bucket/path/to/object URI into bucket and object
// path.
func SplitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// JoinURI builds a gs:// URI from a bucket and object path.
func JoinURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// SiblingObject derives an output object path placed next to a source
// object, swapping its extension.
// e.g. SiblingObject("incoming/data.csv", "_cleaned.json") → "incoming/data_cleaned.json"
func SiblingObject(object, suffix string) string {
	ext := path.Ext(object)
	return strings.TrimSuffix(object, ext) + suffix
}
