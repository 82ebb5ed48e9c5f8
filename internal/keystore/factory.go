package keystore

import (
	"context"
	"fmt"
)

// Типы хранилищ ключей.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Options описывает выбранное хранилище ключей.
type Options struct {
	Backend string
	Dir     string
	Secret  string
	S3      S3Config
}

// New создаёт хранилище ключей по Options.
func New(ctx context.Context, opts Options) (Store, error) {
	w, err := NewWrapper(opts.Secret)
	if err != nil {
		return nil, err
	}
	switch opts.Backend {
	case BackendFS, "":
		return NewFileStore(opts.Dir, w)
	case BackendS3:
		return NewS3Store(ctx, opts.S3, w)
	default:
		return nil, fmt.Errorf("unknown keystore backend %q", opts.Backend)
	}
}
