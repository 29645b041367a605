// Package storage keeps template bytes and archived fill outputs. The service
// runs against Google Cloud Storage in production and the local filesystem
// everywhere else.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// Blob is an object store addressed by slash-separated object names.
type Blob interface {
	Upload(ctx context.Context, r io.Reader, objectName, contentType string) (*UploadResult, error)
	Read(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
	Close() error
}

type UploadResult struct {
	ObjectName string `json:"object_name"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
}

// ReadAll reads a whole object.
func ReadAll(ctx context.Context, b Blob, objectName string) ([]byte, error) {
	rc, err := b.Read(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return data, nil
}

const (
	templatesPrefix = "templates"
	archivesPrefix  = "archives"
)

// TemplateObjectName is where an uploaded template is kept.
func TemplateObjectName(templateID, filename string) string {
	return fmt.Sprintf("%s/%s/%d_%s", templatesPrefix, templateID, time.Now().Unix(), cleanFilename(filename))
}

// ArchiveObjectName is where the output of one fill or bundle run is kept.
func ArchiveObjectName(runID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", archivesPrefix, runID, cleanFilename(filename))
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}
