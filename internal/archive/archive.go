// Package archive keeps a copy of every fetched filing document.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DRIVER_NONE = "none"
	DRIVER_FS   = "fs"
	DRIVER_S3   = "s3"
)

// Archive stores raw filing documents by key.
type Archive interface {
	Put(ctx context.Context, key string, contents []byte) error
}

type Options struct {
	// Driver is one of none, fs or s3, it defaults to none.
	Driver string `json:"driver"`
	// Dir is the target directory of the fs driver.
	Dir string `json:"dir"`
	S3  S3Options `json:"s3"`
}

// New creates the archive selected by opts.Driver.
func New(ctx context.Context, opts Options) (Archive, error) {
	switch opts.Driver {
	case "", DRIVER_NONE:
		return Noop{}, nil
	case DRIVER_FS:
		return NewFilesystem(opts.Dir)
	case DRIVER_S3:
		return NewS3(ctx, opts.S3)
	}
	return nil, fmt.Errorf("unknown archive driver '%s'", opts.Driver)
}

// Key is the archive key of a filing document.
func Key(ptrId string) string {
	return ptrId + ".html"
}

type Noop struct{}

func (Noop) Put(context.Context, string, []byte) error {
	return nil
}

type Filesystem struct {
	dir string
}

func NewFilesystem(dir string) (Filesystem, error) {
	if dir == "" {
		return Filesystem{}, fmt.Errorf("archive directory not specified")
	}
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return Filesystem{}, err
	}
	return Filesystem{dir: dir}, nil
}

func (f Filesystem) Put(_ context.Context, key string, contents []byte) error {
	if key == "" || filepath.Base(key) != key {
		return fmt.Errorf("invalid archive key '%s'", key)
	}
	return os.WriteFile(filepath.Join(f.dir, key), contents, 0666)
}
