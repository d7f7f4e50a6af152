// Package gcs implements the Google Cloud Storage export archive. It authenticates with
// Application Default Credentials, a service account key, or Workload Identity, and can
// target an emulator through a custom endpoint.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	appconfig "github.com/Rodrigo270695/portalAD-sub001/internal/config"
	appstorage "github.com/Rodrigo270695/portalAD-sub001/internal/storage"
	"github.com/Rodrigo270695/portalAD-sub001/pkg/checksum"
)

func init() {
	appstorage.Register("gcs", func(cfg *appconfig.Config) (appstorage.Storage, error) {
		return New(&cfg.Storage.GCS)
	})
}

// GCSStorage implements the Storage interface for Google Cloud Storage
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// clientOptions resolves the auth method into client options.
func clientOptions(cfg *appconfig.GCSStorageConfig) ([]option.ClientOption, error) {
	var opts []option.ClientOption

	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	authMethod := cfg.AuthMethod
	if authMethod == "" {
		if cfg.CredentialsFile != "" || cfg.CredentialsJSON != "" {
			authMethod = "service_account"
		} else {
			authMethod = "default"
		}
	}

	switch authMethod {
	case "service_account":
		if cfg.CredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		} else if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		} else {
			return nil, fmt.Errorf("credentials_file or credentials_json is required for service_account auth")
		}
	case "workload_identity", "default":
		// Application Default Credentials
	default:
		return nil, fmt.Errorf("unsupported auth_method: %s (must be 'default', 'service_account', or 'workload_identity')", authMethod)
	}

	return opts, nil
}

// New creates a new Google Cloud Storage backend
func New(cfg *appconfig.GCSStorageConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Put uploads the object with its SHA-256 stored as object metadata
func (s *GCSStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (*appstorage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	sum := checksum.Of(data)

	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{
		appstorage.ChecksumMetadataKey: sum,
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	updated := time.Now().UTC()
	if attrs := writer.Attrs(); attrs != nil {
		updated = attrs.Updated
	}

	return &appstorage.Object{
		Key:          key,
		Size:         int64(len(data)),
		Checksum:     sum,
		ContentType:  contentType,
		LastModified: updated,
	}, nil
}

// Get opens the object for reading
func (s *GCSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, appstorage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}

	return reader, nil
}

// Stat returns the object attributes
func (s *GCSStorage) Stat(ctx context.Context, key string) (*appstorage.Object, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, appstorage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	return objectFromAttrs(attrs), nil
}

// List returns every object under prefix
func (s *GCSStorage) List(ctx context.Context, prefix string) ([]*appstorage.Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	objects := make([]*appstorage.Object, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		objects = append(objects, objectFromAttrs(attrs))
	}

	return objects, nil
}

// Delete removes the object; a missing object is not an error
func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}

	return nil
}

func objectFromAttrs(attrs *storage.ObjectAttrs) *appstorage.Object {
	return &appstorage.Object{
		Key:          attrs.Name,
		Size:         attrs.Size,
		Checksum:     attrs.Metadata[appstorage.ChecksumMetadataKey],
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated,
	}
}
