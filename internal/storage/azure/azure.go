// Package azure implements the Azure Blob Storage export archive. Blobs are written with
// their SHA-256 in blob metadata and read back through the API, never through SAS links.
package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/storage"
	"github.com/Rodrigo270695/portalAD-sub001/pkg/checksum"
)

func init() {
	storage.Register("azure", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Azure)
	})
}

// AzureStorage implements the Storage interface for Azure Blob Storage
type AzureStorage struct {
	client        *azblob.Client
	containerName string
}

// New creates a new Azure Blob Storage backend
func New(cfg *config.AzureStorageConfig) (*AzureStorage, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account key is required")
	}
	if cfg.ContainerName == "" {
		return nil, fmt.Errorf("azure storage container name is required")
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	return &AzureStorage{
		client:        client,
		containerName: cfg.ContainerName,
	}, nil
}

func (s *AzureStorage) container() *container.Client {
	return s.client.ServiceClient().NewContainerClient(s.containerName)
}

// isNotFound reports whether err is a 404 from the Blob service.
func isNotFound(err error) bool {
	var re *azcore.ResponseError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// Put uploads the blob with its SHA-256 in blob metadata
func (s *AzureStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (*storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	sum := checksum.Of(data)

	opts := &blockblob.UploadOptions{
		Metadata: map[string]*string{
			storage.ChecksumMetadataKey: &sum,
		},
	}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	resp, err := s.container().NewBlockBlobClient(key).Upload(ctx, streaming.NopCloser(bytes.NewReader(data)), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to Azure Blob: %w", err)
	}

	lastModified := time.Now().UTC()
	if resp.LastModified != nil {
		lastModified = *resp.LastModified
	}

	return &storage.Object{
		Key:          key,
		Size:         int64(len(data)),
		Checksum:     sum,
		ContentType:  contentType,
		LastModified: lastModified,
	}, nil
}

// Get opens the blob for reading
func (s *AzureStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.container().NewBlobClient(key).DownloadStream(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download from Azure Blob: %w", err)
	}

	return resp.Body, nil
}

// Stat returns blob properties without downloading it
func (s *AzureStorage) Stat(ctx context.Context, key string) (*storage.Object, error) {
	props, err := s.container().NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blob properties: %w", err)
	}

	obj := &storage.Object{Key: key}
	if props.ContentLength != nil {
		obj.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		obj.ContentType = *props.ContentType
	}
	if props.LastModified != nil {
		obj.LastModified = *props.LastModified
	}
	obj.Checksum = metadataChecksum(props.Metadata)

	return obj, nil
}

// List returns every blob under prefix
func (s *AzureStorage) List(ctx context.Context, prefix string) ([]*storage.Object, error) {
	pager := s.container().NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:  &prefix,
		Include: container.ListBlobsInclude{Metadata: true},
	})

	objects := make([]*storage.Object, 0)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			obj := &storage.Object{Key: *item.Name, Checksum: metadataChecksum(item.Metadata)}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					obj.Size = *p.ContentLength
				}
				if p.ContentType != nil {
					obj.ContentType = *p.ContentType
				}
				if p.LastModified != nil {
					obj.LastModified = *p.LastModified
				}
			}
			objects = append(objects, obj)
		}
	}

	return objects, nil
}

// Delete removes the blob; a missing blob is not an error
func (s *AzureStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.container().NewBlobClient(key).Delete(ctx, nil); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete from Azure Blob: %w", err)
	}

	return nil
}

// metadataChecksum reads the stored digest. The service may return metadata keys with
// different casing than they were written with.
func metadataChecksum(meta map[string]*string) string {
	for k, v := range meta {
		if v != nil && strings.EqualFold(k, storage.ChecksumMetadataKey) {
			return *v
		}
	}
	return ""
}
