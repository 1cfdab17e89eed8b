package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage writes uploads into a Google Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage dials GCS with application default credentials, or the
// service account file when credentialsFile is set.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

// Put streams r into a new object. Existing objects are never overwritten.
func (s *GCSStorage) Put(ctx context.Context, key, contentType string, r io.Reader) (*Object, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return nil, ErrInvalidKey
	}
	obj := s.client.Bucket(s.bucket).Object(key)
	w := obj.If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close gcs object writer: %w", err)
	}

	return &Object{
		URL:         PublicURL(s.bucket, key),
		PublicID:    key,
		ContentType: contentType,
		Size:        n,
	}, nil
}

// Delete removes the object, ignoring objects that no longer exist.
func (s *GCSStorage) Delete(ctx context.Context, publicID string) error {
	err := s.client.Bucket(s.bucket).Object(publicID).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// PublicURL builds the storage.googleapis.com URL for an object.
func PublicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "https://storage.googleapis.com/" + bucket + "/" + strings.Join(segments, "/")
}
