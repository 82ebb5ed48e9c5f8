package keystore

import (
	"PassKeeper/internal/crypto"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	w, err := NewWrapper("test-keystore-secret")
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "keys")
	s, err := NewFileStore(dir, w)
	require.NoError(t, err)
	return s, dir
}

func newKey(t *testing.T) []byte {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return k
}

func TestWrapper_RoundTripAndBinding(t *testing.T) {
	w, err := NewWrapper("s1")
	require.NoError(t, err)
	key := newKey(t)

	blob, err := w.Wrap(7, key)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), string(key))

	got, err := w.Unwrap(7, blob)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	// блоб чужого пользователя не раскрывается
	_, err = w.Unwrap(8, blob)
	assert.Error(t, err)

	// другой секрет сервера — тоже
	other, err := NewWrapper("s2")
	require.NoError(t, err)
	_, err = other.Unwrap(7, blob)
	assert.Error(t, err)

	_, err = w.Wrap(7, []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewWrapper("")
	assert.Error(t, err)
}

func TestFileStore_SaveLoadDelete(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()
	key := newKey(t)

	require.NoError(t, s.Save(ctx, 1, key))
	got, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	if runtime.GOOS != "windows" {
		st, err := os.Stat(filepath.Join(dir, "1.key"))
		require.NoError(t, err)
		assert.Equal(t, FilePermissions, st.Mode().Perm())
		dst, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, DirPermissions, dst.Mode().Perm())
	}

	require.NoError(t, s.Delete(ctx, 1))
	_, err = s.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// удаление отсутствующего ключа — не ошибка
	assert.NoError(t, s.Delete(ctx, 1))
}

func TestFileStore_SaveIdempotentAndNoOverwrite(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	key := newKey(t)

	require.NoError(t, s.Save(ctx, 5, key))
	// повтор после таймаута с тем же ключом
	require.NoError(t, s.Save(ctx, 5, key))

	// другой ключ не должен затереть сохранённый
	err := s.Save(ctx, 5, newKey(t))
	assert.ErrorIs(t, err, ErrKeyConflict)

	got, err := s.Load(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	// временные файлы не остаются
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_ConcurrentSaveSameUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	keys := [][]byte{newKey(t), newKey(t), newKey(t), newKey(t)}

	var wg sync.WaitGroup
	errs := make([]error, len(keys))
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Save(ctx, 3, keys[i])
		}(i)
	}
	wg.Wait()

	stored, err := s.Load(ctx, 3)
	require.NoError(t, err)
	winners := 0
	for i, e := range errs {
		if e == nil {
			winners++
			assert.Equal(t, keys[i], stored)
		} else {
			assert.ErrorIs(t, e, ErrKeyConflict)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestFileStore_LoadCorruptOrMissing(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, 42)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// мусор вместо ключа — "не найден", а не частичные байты
	require.NoError(t, os.WriteFile(filepath.Join(dir, "42.key"), []byte("garbage"), FilePermissions))
	got, err := s.Load(ctx, 42)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// нечитаемый файл не перезаписывается новым ключом
	assert.ErrorIs(t, s.Save(ctx, 42, newKey(t)), ErrKeyConflict)
}

// Блоб, скопированный в файл другого пользователя, не раскрывается
func TestFileStore_MovedBlobRejected(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, 1, newKey(t)))

	blob, err := os.ReadFile(filepath.Join(dir, "1.key"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.key"), blob, FilePermissions))

	_, err = s.Load(ctx, 2)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNewFileStore_TightensPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix permissions only")
	}
	dir := filepath.Join(t.TempDir(), "loose")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	w, err := NewWrapper("x")
	require.NoError(t, err)

	_, err = NewFileStore(dir, w)
	require.NoError(t, err)
	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, DirPermissions, st.Mode().Perm())
}

func TestFileStore_InvalidArgs(t *testing.T) {
	w, _ := NewWrapper("x")
	_, err := NewFileStore("", w)
	assert.Error(t, err)
	_, err = NewFileStore(t.TempDir(), nil)
	assert.Error(t, err)

	s, _ := newTestStore(t)
	assert.ErrorIs(t, s.Save(context.Background(), 1, []byte("short")), ErrInvalidKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Load(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Backends(t *testing.T) {
	ctx := context.Background()
	st, err := New(ctx, Options{Backend: BackendFS, Dir: t.TempDir(), Secret: "x"})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, st)

	_, err = New(ctx, Options{Backend: "tape", Dir: t.TempDir(), Secret: "x"})
	assert.Error(t, err)

	_, err = New(ctx, Options{Backend: BackendFS, Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestS3Store_ObjectName(t *testing.T) {
	s := &S3Store{prefix: "prod"}
	assert.Equal(t, "prod/keys/15.key", s.objectName(15))
	s = &S3Store{}
	assert.Equal(t, "keys/15.key", s.objectName(15))
}
