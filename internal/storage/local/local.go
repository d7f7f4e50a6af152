// Package local implements the filesystem export archive. It suits development and
// single-node deployments; several API instances would need a shared volume.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/storage"
	"github.com/Rodrigo270695/portalAD-sub001/pkg/checksum"
)

func init() {
	storage.Register("local", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Local)
	})
}

// LocalStorage implements the Storage interface for local filesystem storage
type LocalStorage struct {
	basePath string
}

// New creates a new local filesystem storage backend
func New(cfg *config.LocalStorageConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: filepath.Clean(cfg.BasePath)}, nil
}

// fullPath maps a key to a path under basePath, rejecting keys that escape it.
func (s *LocalStorage) fullPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes the object, hashing it on the way to disk
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (*storage.Object, error) {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	digest := checksum.NewWriter(file)
	written, err := io.Copy(digest, r)
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}

	return &storage.Object{
		Key:          key,
		Size:         written,
		Checksum:     digest.Sum(),
		ContentType:  contentType,
		LastModified: stat.ModTime(),
	}, nil
}

// Get opens the object for reading
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Stat returns the object metadata. The checksum is recomputed from disk.
func (s *LocalStorage) Stat(ctx context.Context, key string) (*storage.Object, error) {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file metadata: %w", err)
	}
	if info.IsDir() {
		return nil, storage.ErrNotFound
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer file.Close()

	sum, err := checksum.Sum(file)
	if err != nil {
		return nil, err
	}

	return &storage.Object{
		Key:          key,
		Size:         info.Size(),
		Checksum:     sum,
		ContentType:  mime.TypeByExtension(path.Ext(key)),
		LastModified: info.ModTime(),
	}, nil
}

// List walks basePath and returns every file whose key starts with prefix
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]*storage.Object, error) {
	objects := make([]*storage.Object, 0)

	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, &storage.Object{
			Key:          key,
			Size:         info.Size(),
			ContentType:  mime.TypeByExtension(path.Ext(key)),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Delete removes a file from the local filesystem
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	// Remove empty parent directories, best effort
	dir := filepath.Dir(fullPath)
	for dir != s.basePath && strings.HasPrefix(dir, s.basePath) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}

	return nil
}
