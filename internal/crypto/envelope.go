package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeyLen — длина ключа для AES‑256 (в байтах).
const KeyLen = 32

// Длины nonce/IV для поддерживаемых режимов.
const (
	GCMNonceLen = 12
	GCMTagLen   = 16
	CBCIVLen    = aes.BlockSize
)

var (
	// ErrInvalidInput — некорректные входные данные (пустой логин, короткая соль и т.п.).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidKey — ключ не 32 байта.
	ErrInvalidKey = errors.New("invalid key length")
	// ErrAuthFailed — конверт повреждён, подменён или открыт чужим ключом.
	ErrAuthFailed = errors.New("envelope authentication failed")
)

// Mode — режим шифрования, которым запечатан конверт.
type Mode string

const (
	// ModeGCM — AES-256-GCM, единственный режим для новых записей.
	ModeGCM Mode = "gcm"
	// ModeLegacyCBC — AES-256-CBC + PKCS#7 без аутентификации. Только чтение старых записей.
	ModeLegacyCBC Mode = "cbc"
)

// NonceLen возвращает фиксированную длину nonce/IV режима.
func (m Mode) NonceLen() int {
	if m == ModeLegacyCBC {
		return CBCIVLen
	}
	return GCMNonceLen
}

// Valid сообщает, известен ли режим.
func (m Mode) Valid() bool {
	return m == ModeGCM || m == ModeLegacyCBC
}

// Envelope — самодостаточный результат шифрования одного поля.
// Для GCM Ciphertext включает тег аутентификации.
type Envelope struct {
	Mode       Mode
	Nonce      []byte
	Ciphertext []byte
}

// IsEmpty — признак пустого конверта (результат Seal пустой строки).
func (e Envelope) IsEmpty() bool {
	return len(e.Nonce) == 0 && len(e.Ciphertext) == 0
}

// Bytes возвращает бинарное представление nonce ‖ ciphertext.
func (e Envelope) Bytes() []byte {
	if e.IsEmpty() {
		return nil
	}
	out := make([]byte, 0, len(e.Nonce)+len(e.Ciphertext))
	out = append(out, e.Nonce...)
	return append(out, e.Ciphertext...)
}

// String возвращает текстовое представление base64(nonce ‖ ciphertext).
// Пустой конверт кодируется пустой строкой.
func (e Envelope) String() string {
	if e.IsEmpty() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(e.Bytes())
}

// ParseEnvelope разбирает бинарный конверт известного режима.
func ParseEnvelope(mode Mode, raw []byte) (Envelope, error) {
	if mode == "" {
		mode = ModeGCM
	}
	if !mode.Valid() {
		return Envelope{}, fmt.Errorf("%w: unknown mode %q", ErrAuthFailed, mode)
	}
	if len(raw) == 0 {
		return Envelope{Mode: mode}, nil
	}
	n := mode.NonceLen()
	if len(raw) <= n {
		return Envelope{}, fmt.Errorf("%w: envelope truncated", ErrAuthFailed)
	}
	return Envelope{
		Mode:       mode,
		Nonce:      append([]byte(nil), raw[:n]...),
		Ciphertext: append([]byte(nil), raw[n:]...),
	}, nil
}

// ParseEnvelopeString разбирает текстовый конверт (base64).
func ParseEnvelopeString(mode Mode, s string) (Envelope, error) {
	if s == "" {
		return ParseEnvelope(mode, nil)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid base64", ErrAuthFailed)
	}
	return ParseEnvelope(mode, raw)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal шифрует plaintext с помощью AES‑GCM и заданного ключа.
// Nonce генерируется заново на каждый вызов. Пустой plaintext даёт пустой конверт.
func Seal(key, plaintext []byte) (Envelope, error) {
	if len(key) != KeyLen {
		return Envelope{}, ErrInvalidKey
	}
	if len(plaintext) == 0 {
		return Envelope{Mode: ModeGCM}, nil
	}
	gcm, err := newGCM(key)
	if err != nil {
		return Envelope{}, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Mode:       ModeGCM,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Open расшифровывает конверт. Любое повреждение или чужой ключ дают ErrAuthFailed.
func Open(key []byte, env Envelope) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, ErrInvalidKey
	}
	if env.IsEmpty() {
		return []byte{}, nil
	}
	switch env.Mode {
	case ModeGCM, "":
		return openGCM(key, env)
	case ModeLegacyCBC:
		return openLegacyCBC(key, env)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrAuthFailed, env.Mode)
	}
}

func openGCM(key []byte, env Envelope) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != gcm.NonceSize() || len(env.Ciphertext) < gcm.Overhead() {
		return nil, fmt.Errorf("%w: envelope truncated", ErrAuthFailed)
	}
	plain, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plain, nil
}

// SealString шифрует строку и возвращает текстовый конверт.
func SealString(key []byte, plaintext string) (string, error) {
	env, err := Seal(key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return env.String(), nil
}

// OpenString расшифровывает текстовый конверт указанного режима.
func OpenString(key []byte, mode Mode, s string) (string, error) {
	env, err := ParseEnvelopeString(mode, s)
	if err != nil {
		return "", err
	}
	plain, err := Open(key, env)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// GenerateKey возвращает случайный 256-битный ключ.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
