package keystore

import (
	"PassKeeper/internal/crypto"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	wrapVersion byte = 1
	kekSalt          = "passkeeper/keystore"
	kekInfo          = "vault-key-wrapping v1"
)

var errBadBlob = errors.New("malformed key blob")

// Wrapper шифрует ключи пользователей серверным KEK перед записью на носитель.
// Сам KEK хранится в memguard.Enclave и расшифровывается только на время операции.
type Wrapper struct {
	kek *memguard.Enclave
}

// NewWrapper выводит KEK из секрета сервера (HKDF-SHA256).
func NewWrapper(secret string) (*Wrapper, error) {
	if secret == "" {
		return nil, errors.New("keystore secret is required")
	}
	kek := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(secret), []byte(kekSalt), []byte(kekInfo))
	if _, err := io.ReadFull(r, kek); err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}
	// NewEnclave затирает исходный буфер
	return &Wrapper{kek: memguard.NewEnclave(kek)}, nil
}

// associatedData привязывает запись к пользователю: блоб нельзя подложить другому id.
func associatedData(userID int64) []byte {
	return []byte("user:" + strconv.FormatInt(userID, 10))
}

func (w *Wrapper) openKEK() (*memguard.LockedBuffer, error) {
	buf, err := w.kek.Open()
	if err != nil {
		return nil, fmt.Errorf("open kek enclave: %w", err)
	}
	return buf, nil
}

// Wrap возвращает блоб version ‖ nonce[24] ‖ XChaCha20-Poly1305(key).
func (w *Wrapper) Wrap(userID int64, key []byte) ([]byte, error) {
	if len(key) != crypto.KeyLen {
		return nil, ErrInvalidKey
	}
	buf, err := w.openKEK()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	aead, err := chacha20poly1305.NewX(buf.Bytes())
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(nonce)+len(key)+aead.Overhead())
	out = append(out, wrapVersion)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, key, associatedData(userID)), nil
}

// Unwrap проверяет и расшифровывает блоб, записанный Wrap.
func (w *Wrapper) Unwrap(userID int64, blob []byte) ([]byte, error) {
	if len(blob) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead || blob[0] != wrapVersion {
		return nil, errBadBlob
	}
	buf, err := w.openKEK()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	aead, err := chacha20poly1305.NewX(buf.Bytes())
	if err != nil {
		return nil, err
	}
	nonce := blob[1 : 1+aead.NonceSize()]
	key, err := aead.Open(nil, nonce, blob[1+aead.NonceSize():], associatedData(userID))
	if err != nil {
		return nil, errBadBlob
	}
	if len(key) != crypto.KeyLen {
		return nil, errBadBlob
	}
	return key, nil
}
