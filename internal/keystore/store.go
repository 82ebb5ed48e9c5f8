package keystore

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrKeyNotFound — ключа нет либо запись нечитаема. Частичные байты не возвращаются никогда.
	ErrKeyNotFound = errors.New("vault key not found")
	// ErrKeyConflict — для пользователя уже сохранён другой ключ.
	ErrKeyConflict = errors.New("vault key already exists")
	// ErrInvalidKey — ключ не 32 байта.
	ErrInvalidKey = errors.New("invalid vault key length")
)

// Store хранит ключи хранилища пользователей вне реляционной БД.
type Store interface {
	// Save атомарно сохраняет ключ. Повторный вызов с тем же ключом успешен,
	// с другим — ErrKeyConflict, сохранённый ключ при этом не меняется.
	Save(ctx context.Context, userID int64, key []byte) error
	// Load возвращает ключ либо ошибку, совместимую с ErrKeyNotFound.
	Load(ctx context.Context, userID int64) ([]byte, error)
	// Delete удаляет ключ; отсутствие ключа ошибкой не считается.
	Delete(ctx context.Context, userID int64) error
}

func keyName(userID int64) string {
	return strconv.FormatInt(userID, 10) + ".key"
}
