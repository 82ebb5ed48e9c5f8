package keystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// FilePermissions — права файла ключа: только владелец.
	FilePermissions os.FileMode = 0o600
	// DirPermissions — права каталога ключей: только владелец.
	DirPermissions os.FileMode = 0o700
)

// FileStore — файловое хранилище ключей: один файл <dir>/<userID>.key на пользователя.
type FileStore struct {
	dir string
	w   *Wrapper
}

var _ Store = (*FileStore)(nil)

// NewFileStore создаёт каталог ключей и приводит его права к 0700.
func NewFileStore(dir string, w *Wrapper) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("empty keystore dir")
	}
	if w == nil {
		return nil, errors.New("nil key wrapper")
	}
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	// каталог мог существовать с более широкими правами
	if err := os.Chmod(dir, DirPermissions); err != nil {
		return nil, fmt.Errorf("chmod keystore dir: %w", err)
	}
	if runtime.GOOS != "windows" {
		st, err := os.Stat(dir)
		if err != nil {
			return nil, err
		}
		if st.Mode().Perm()&0o077 != 0 {
			return nil, fmt.Errorf("keystore dir %s is accessible by others (%v)", dir, st.Mode().Perm())
		}
	}
	return &FileStore{dir: dir, w: w}, nil
}

func (s *FileStore) path(userID int64) string {
	return filepath.Join(s.dir, keyName(userID))
}

// Save записывает ключ через временный файл и жёсткую ссылку:
// существующий файл никогда не перезаписывается.
func (s *FileStore) Save(ctx context.Context, userID int64, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blob, err := s.w.Wrap(userID, key)
	if err != nil {
		return err
	}

	// повторная попытка после таймаута — тот же ключ уже лежит на месте
	if err := s.sameAsStored(ctx, userID, key); !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp key file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp key file: %w", err)
	}
	if err := os.Chmod(tmpPath, FilePermissions); err != nil {
		return fmt.Errorf("chmod temp key file: %w", err)
	}

	if err := os.Link(tmpPath, s.path(userID)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// гонка с параллельной записью: сверяем, что лежит на диске
			if err := s.sameAsStored(ctx, userID, key); err != nil {
				if errors.Is(err, ErrKeyNotFound) {
					return ErrKeyConflict
				}
				return err
			}
			return nil
		}
		return fmt.Errorf("link key file: %w", err)
	}
	return nil
}

// sameAsStored: nil — сохранён тот же ключ, ErrKeyConflict — другой, ErrKeyNotFound — ключа нет.
func (s *FileStore) sameAsStored(ctx context.Context, userID int64, key []byte) error {
	stored, err := s.Load(ctx, userID)
	if err != nil {
		if _, statErr := os.Stat(s.path(userID)); statErr == nil {
			// файл есть, но не читается — не трогаем его
			return ErrKeyConflict
		}
		return ErrKeyNotFound
	}
	if !bytes.Equal(stored, key) {
		return ErrKeyConflict
	}
	return nil
}

// Load читает и расшифровывает ключ пользователя.
func (s *FileStore) Load(ctx context.Context, userID int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(s.path(userID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: read: %v", ErrKeyNotFound, err)
	}
	key, err := s.w.Unwrap(userID, blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}
	return key, nil
}

// Delete удаляет файл ключа пользователя.
func (s *FileStore) Delete(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete key file: %w", err)
	}
	return nil
}
