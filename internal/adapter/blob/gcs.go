// Package blob downloads dataset files from Google Cloud Storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
)

// ErrBucketNotAllowed is returned for objects outside the configured bucket.
var ErrBucketNotAllowed = errors.New("bucket not allowed")

// Object names a Cloud Storage object.
type Object struct {
	Bucket string
	Name   string
}

func (o Object) String() string { return "gs://" + o.Bucket + "/" + o.Name }

// ParseURI parses "gs://bucket/path/to/object".
func ParseURI(uri string) (Object, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return Object{}, fmt.Errorf("object uri %q: want gs://bucket/object", uri)
	}
	bucket, name, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || name == "" || strings.HasSuffix(name, "/") {
		return Object{}, fmt.Errorf("object uri %q: want gs://bucket/object", uri)
	}
	return Object{Bucket: bucket, Name: name}, nil
}

// openFunc opens an object for reading.
type openFunc func(ctx context.Context, o Object) (io.ReadCloser, error)

// Fetcher copies objects from one bucket to local files. The storage
// client is created on first use, so a Fetcher can be built without
// credentials.
type Fetcher struct {
	bucket string
	log    logrus.FieldLogger

	mu     sync.Mutex
	client *storage.Client
	open   openFunc
}

// NewFetcher creates a Fetcher restricted to bucket.
func NewFetcher(bucket string, log logrus.FieldLogger) *Fetcher {
	f := &Fetcher{bucket: bucket, log: log}
	f.open = f.openGCS
	return f
}

// Bucket returns the allowed bucket.
func (f *Fetcher) Bucket() string { return f.bucket }

func (f *Fetcher) openGCS(ctx context.Context, o Object) (io.ReadCloser, error) {
	f.mu.Lock()
	if f.client == nil {
		client, err := storage.NewClient(ctx)
		if err != nil {
			f.mu.Unlock()
			return nil, fmt.Errorf("failed to init GCS client: %w", err)
		}
		f.client = client
	}
	client := f.client
	f.mu.Unlock()

	return client.Bucket(o.Bucket).Object(o.Name).NewReader(ctx)
}

// Fetch downloads o into dir and returns the local path. The file is named
// after the object's base name passed through name, which may sanitize it.
// An existing file of that name is replaced.
func (f *Fetcher) Fetch(ctx context.Context, o Object, dir string, name func(string) string) (string, error) {
	if o.Bucket != f.bucket {
		return "", fmt.Errorf("%w: %s", ErrBucketNotAllowed, o.Bucket)
	}
	base := path.Base(o.Name)
	if name != nil {
		base = name(base)
	}
	if base == "" || base == "." {
		return "", fmt.Errorf("object %s has no usable file name", o)
	}

	r, err := f.open(ctx, o)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", o, err)
	}
	defer func() { _ = r.Close() }()

	tmp, err := os.CreateTemp(dir, ".fetch-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to copy %s: %w", o, err)
	}

	dest := filepath.Join(dir, base)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", o, err)
	}
	if f.log != nil {
		f.log.WithFields(logrus.Fields{"object": o.String(), "bytes": n, "path": dest}).Info("fetched object")
	}
	return dest, nil
}

// Close releases the storage client, if one was created.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}
