package crypto

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// MinSaltLen — минимальная длина пользовательской соли (в байтах).
const MinSaltLen = 16

// Params — параметры Argon2id.
type Params struct {
	Time      uint32 // число проходов
	MemoryKiB uint32 // объём памяти в KiB
	Threads   uint8  // степень параллелизма
}

// DefaultParams — параметры по умолчанию: 2 прохода, 64 MiB, 4 потока.
var DefaultParams = Params{Time: 2, MemoryKiB: 64 * 1024, Threads: 4}

func (p Params) withDefaults() Params {
	if p.Time == 0 {
		p.Time = DefaultParams.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultParams.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = DefaultParams.Threads
	}
	return p
}

// GenerateSalt возвращает случайную соль длины n (не меньше MinSaltLen).
func GenerateSalt(n int) ([]byte, error) {
	if n < MinSaltLen {
		return nil, fmt.Errorf("%w: salt must be at least %d bytes", ErrInvalidInput, MinSaltLen)
	}
	salt := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// EncodeSalt кодирует соль для хранения в строке пользователя.
func EncodeSalt(salt []byte) string {
	return base64.StdEncoding.EncodeToString(salt)
}

// DecodeSalt декодирует соль, сохранённую через EncodeSalt.
func DecodeSalt(s string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt encoding", ErrInvalidInput)
	}
	return salt, nil
}

// mixSalt смешивает случайную соль с логином: H = SHA-256(salt || ":" || lower(trim(username))).
// Логин не секретен, он лишь разводит ключи пользователей с одинаковым паролем.
func mixSalt(salt []byte, username string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(":"))
	h.Write([]byte(strings.ToLower(strings.TrimSpace(username))))
	return h.Sum(nil)
}

// DeriveKey выводит 256-битный ключ из мастер-секрета пользователя через Argon2id.
// Детерминирована: одинаковые входы дают одинаковый ключ.
func DeriveKey(username, secret string, salt []byte, p Params) ([]byte, error) {
	if strings.TrimSpace(username) == "" || secret == "" {
		return nil, fmt.Errorf("%w: username and secret are required", ErrInvalidInput)
	}
	if len(salt) < MinSaltLen {
		return nil, fmt.Errorf("%w: salt must be at least %d bytes", ErrInvalidInput, MinSaltLen)
	}
	p = p.withDefaults()
	return argon2.IDKey([]byte(secret), mixSalt(salt, username), p.Time, p.MemoryKiB, p.Threads, KeyLen), nil
}

// Deriver ограничивает число одновременных вычислений KDF.
// Argon2 намеренно дорогой, поэтому поток регистраций не должен занять все ядра.
type Deriver struct {
	params Params
	sem    *semaphore.Weighted
}

// NewDeriver создаёт Deriver с не более чем workers параллельными вычислениями.
func NewDeriver(p Params, workers int) *Deriver {
	if workers < 1 {
		workers = 1
	}
	return &Deriver{params: p.withDefaults(), sem: semaphore.NewWeighted(int64(workers))}
}

// Params возвращает параметры, с которыми работает Deriver.
func (d *Deriver) Params() Params {
	return d.params
}

// Derive ждёт свободный слот (или отмену ctx) и вычисляет ключ.
func (d *Deriver) Derive(ctx context.Context, username, secret string, salt []byte) ([]byte, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)
	return DeriveKey(username, secret, salt, d.params)
}
