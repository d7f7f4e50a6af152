// Package storage defines the Storage interface for the object stores that hold archived
// activity exports (CSV snapshots of the audit trail kept for compliance requests).
//
// Backends register themselves with the factory from an init() function in their own
// package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return New(&cfg.Storage.MyBackend)
//	    })
//	}
//
// and the binaries blank-import every backend they support. Downloads are always proxied
// through the API so each one passes the download interceptor and lands in the trail;
// backends therefore do not hand out signed URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get and Stat for a missing key.
var ErrNotFound = errors.New("object not found")

// Storage defines the interface for all export archive backends
type Storage interface {
	// Put stores the content of r at key and returns its size and SHA-256
	Put(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error)

	// Get opens the object at key for reading
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns the metadata of the object at key without reading it
	Stat(ctx context.Context, key string) (*Object, error)

	// List returns the objects whose key starts with prefix, ordered by key
	List(ctx context.Context, prefix string) ([]*Object, error)

	// Delete removes the object at key; a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// Object describes a stored export
type Object struct {
	// Key is the slash-separated object key
	Key string `json:"key"`

	// Size is the object size in bytes
	Size int64 `json:"size"`

	// Checksum is the hex SHA-256 of the content, when the backend knows it
	Checksum string `json:"checksum,omitempty"`

	// ContentType is the MIME type recorded at upload
	ContentType string `json:"content_type,omitempty"`

	// LastModified is when the object was written
	LastModified time.Time `json:"last_modified"`
}

// ChecksumMetadataKey is the object metadata key cloud backends store the SHA-256 under.
const ChecksumMetadataKey = "sha256"
