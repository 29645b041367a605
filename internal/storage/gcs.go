package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSClient struct {
	client     *storage.Client
	bucketName string
}

func NewGCSClient(ctx context.Context, bucketName, projectID, credentialsPath string) (*GCSClient, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("failed to create GCS client: bucket name is required (project %q)", projectID)
	}

	var client *storage.Client
	var err error

	if credentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (g *GCSClient) Upload(ctx context.Context, reader io.Reader, objectName, contentType string) (*UploadResult, error) {
	writer := g.client.Bucket(g.bucketName).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}

	size, err := io.Copy(writer, reader)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to copy data to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return &UploadResult{
		ObjectName: objectName,
		URL:        fmt.Sprintf("gs://%s/%s", g.bucketName, objectName),
		Size:       size,
	}, nil
}

func (g *GCSClient) Read(ctx context.Context, objectName string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucketName).Object(objectName).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", objectName, err)
	}
	return r, nil
}

// Delete treats a missing object as already deleted.
func (g *GCSClient) Delete(ctx context.Context, objectName string) error {
	err := g.client.Bucket(g.bucketName).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", objectName, err)
	}
	return nil
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
