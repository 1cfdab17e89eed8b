package storage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned when an object key escapes the storage root or is empty.
var ErrInvalidKey = errors.New("invalid object key")

// Object describes a stored upload. Only URL and PublicID are persisted by callers.
type Object struct {
	URL         string `json:"url"`
	PublicID    string `json:"publicId"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Uploader stores and removes uploaded objects.
type Uploader interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, publicID string) error
}
