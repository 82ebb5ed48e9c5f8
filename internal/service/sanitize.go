package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Ограничения длины полей.
const (
	maxAppNameLen   = 255
	maxAppTypeLen   = 255
	maxUsernameLen  = 255
	maxPasswordLen  = 100
	maxAnswerLen    = 255
	maxGroupNameLen = 500
)

var inputCleaner = strings.NewReplacer("\x00", "", "\r", "", "\n", " ")

// sanitize убирает NUL и CR, переводы строк заменяет пробелом, обрезает до maxLen рун и пробелы по краям.
func sanitize(s string, maxLen int) string {
	s = inputCleaner.Replace(s)
	if utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return strings.TrimSpace(s)
}

// cleanField проверяет длину поля и очищает его. Пустое после очистки поле — ошибка.
func cleanField(name, value string, maxLen int) (string, error) {
	if utf8.RuneCountInString(value) > maxLen {
		return "", fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidInput, name, maxLen)
	}
	v := sanitize(value, maxLen)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	return v, nil
}

// cleanOptional — как cleanField, но пустое значение даёт nil.
func cleanOptional(name string, value *string, maxLen int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	if utf8.RuneCountInString(*value) > maxLen {
		return nil, fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidInput, name, maxLen)
	}
	v := sanitize(*value, maxLen)
	if v == "" {
		return nil, nil
	}
	return &v, nil
}

// checkField только проверяет длину и непустоту. Значение не меняется.
func checkField(name, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidInput, name, maxLen)
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	return nil
}
