package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
	"github.com/Rodrigo270695/portalAD-sub001/internal/storage"
	"github.com/Rodrigo270695/portalAD-sub001/pkg/checksum"
)

// ErrInvalidName is returned for archive names that fall outside the export prefix.
var ErrInvalidName = errors.New("invalid export name")

// Archive describes a stored export.
type Archive struct {
	*storage.Object
	Name string `json:"name"`
	Rows int    `json:"rows,omitempty"`
}

// Archiver writes CSV exports into object storage under a fixed prefix.
type Archiver struct {
	src       Source
	store     storage.Storage
	prefix    string
	batchSize int
	now       func() time.Time
}

// NewArchiver creates an Archiver. Names handed to Open are relative to prefix.
func NewArchiver(src Source, store storage.Storage, prefix string, batchSize int) *Archiver {
	return &Archiver{
		src:       src,
		store:     store,
		prefix:    strings.Trim(prefix, "/"),
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Create renders the filtered trail and stores it as
// <prefix>/YYYY/MM/DD/activity-<timestamp>-<id>.csv.
func (a *Archiver) Create(ctx context.Context, filters repositories.ActivityFilters) (*Archive, error) {
	var buf bytes.Buffer
	digest := checksum.NewWriter(&buf)
	rows, err := WriteCSV(ctx, digest, a.src, filters, a.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	now := a.now().UTC()
	name := fmt.Sprintf("%s/activity-%s-%s.csv",
		now.Format("2006/01/02"), now.Format("20060102T150405Z"), uuid.New().String()[:8])

	obj, err := a.store.Put(ctx, a.key(name), &buf, ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}
	if obj.Checksum != "" && obj.Checksum != digest.Sum() {
		return nil, fmt.Errorf("export %s stored with checksum %s, rendered %s", name, obj.Checksum, digest.Sum())
	}

	return &Archive{Object: obj, Name: name, Rows: rows}, nil
}

// List returns the stored exports, oldest first.
func (a *Archiver) List(ctx context.Context) ([]*Archive, error) {
	objects, err := a.store.List(ctx, a.prefix+"/")
	if err != nil {
		return nil, err
	}

	archives := make([]*Archive, 0, len(objects))
	for _, obj := range objects {
		archives = append(archives, &Archive{Object: obj, Name: strings.TrimPrefix(obj.Key, a.prefix+"/")})
	}
	return archives, nil
}

// Open returns a reader over the named export with its metadata. The caller closes it.
func (a *Archiver) Open(ctx context.Context, name string) (io.ReadCloser, *Archive, error) {
	key, err := a.resolve(name)
	if err != nil {
		return nil, nil, err
	}

	obj, err := a.store.Stat(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return rc, &Archive{Object: obj, Name: strings.TrimPrefix(key, a.prefix+"/")}, nil
}

// Verify recomputes the SHA-256 of the named export and compares it with the digest
// recorded at upload. Exports without a recorded digest fail verification.
func (a *Archiver) Verify(ctx context.Context, name string) (bool, error) {
	key, err := a.resolve(name)
	if err != nil {
		return false, err
	}

	obj, err := a.store.Stat(ctx, key)
	if err != nil {
		return false, err
	}
	if obj.Checksum == "" {
		return false, fmt.Errorf("export %s has no recorded checksum", name)
	}

	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	return checksum.Verify(rc, obj.Checksum)
}

func (a *Archiver) key(name string) string {
	return a.prefix + "/" + name
}

// resolve maps a user-supplied name to a key under the prefix.
func (a *Archiver) resolve(name string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" || clean != strings.TrimPrefix(name, "/") {
		return "", ErrInvalidName
	}
	return a.key(clean), nil
}
