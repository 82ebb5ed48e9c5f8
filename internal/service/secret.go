package service

import (
	"PassKeeper/internal/strength"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt не принимает пароли длиннее 72 байт.
const maxSecretBytes = 72

func hashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func checkSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// dummyHash сравнивается вместо хеша отсутствующего пользователя: время ответа одинаковое.
var dummyHash = sync.OnceValue(func() string {
	h, _ := bcrypt.GenerateFromPassword([]byte("passkeeper-absent-user"), bcrypt.DefaultCost)
	return string(h)
})

// validateSecret применяет политику пароля учётной записи.
func validateSecret(secret string) error {
	if len(secret) > maxSecretBytes {
		return fmt.Errorf("%w: password is longer than %d bytes", ErrInvalidInput, maxSecretBytes)
	}
	if issues := strength.Validate(secret); len(issues) > 0 {
		return fmt.Errorf("%w: password validation failed: %s", ErrInvalidInput, strings.Join(issues, ", "))
	}
	return nil
}
