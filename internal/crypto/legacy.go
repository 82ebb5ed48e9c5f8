package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// openLegacyCBC читает записи старого формата: base64(iv[16] ‖ AES-256-CBC(PKCS#7)).
// Режим не аутентифицирован, новые записи в нём не создаются.
func openLegacyCBC(key []byte, env Envelope) ([]byte, error) {
	if len(env.Nonce) != CBCIVLen || len(env.Ciphertext) == 0 || len(env.Ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: malformed legacy envelope", ErrAuthFailed)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(env.Ciphertext))
	cipher.NewCBCDecrypter(block, env.Nonce).CryptBlocks(plain, env.Ciphertext)
	return pkcs7Unpad(plain)
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrAuthFailed
	}
	pad := int(b[len(b)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(b) {
		return nil, ErrAuthFailed
	}
	if !bytes.Equal(b[len(b)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return nil, ErrAuthFailed
	}
	return b[:len(b)-pad], nil
}
