// Package strength — простая эвристическая оценка паролей (0..100) и проверка политики.
// Не криптография: используется только для подсказок пользователю и отчётов.
package strength

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Пороги, которыми пользуются отчёты.
const (
	WeakBelow   = 40
	StrongFrom  = 75
	MinLength   = 8
	MaxScore    = 100
	specialsSet = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

var (
	reLower   = regexp.MustCompile(`[a-z]`)
	reUpper   = regexp.MustCompile(`[A-Z]`)
	reDigit   = regexp.MustCompile(`[0-9]`)
	reDigits  = regexp.MustCompile(`^[0-9]+$`)
	reLetters = regexp.MustCompile(`^[a-zA-Z]+$`)

	weakPrefixes = []string{"12345", "abcde", "qwerty", "password"}
	commonWords  = []string{"password", "admin", "welcome", "qwerty", "12345", "letmein", "monkey"}
	commonExact  = []string{"password", "12345678", "qwerty", "abc123", "password123"}
)

func hasSpecial(s string) bool {
	return strings.ContainsAny(s, specialsSet)
}

// allSame — строка из одного повторяющегося символа (не короче двух).
func allSame(s string) bool {
	if utf8.RuneCountInString(s) < 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

// hasTriple — три одинаковых символа подряд.
func hasTriple(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= 3 {
			return true
		}
	}
	return false
}

// Score возвращает оценку пароля от 0 до 100.
func Score(password string) int {
	score := 0
	n := utf8.RuneCountInString(password)
	switch {
	case n >= 12:
		score += 25
	case n >= 8:
		score += 15
	case n >= 6:
		score += 5
	}

	if reLower.MatchString(password) {
		score += 15
	}
	if reUpper.MatchString(password) {
		score += 15
	}
	if reDigit.MatchString(password) {
		score += 15
	}
	if hasSpecial(password) {
		score += 20
	}

	lower := strings.ToLower(password)
	weak := reDigits.MatchString(password) || reLetters.MatchString(password) || allSame(password)
	for _, p := range weakPrefixes {
		if strings.HasPrefix(lower, p) {
			weak = true
			break
		}
	}
	if weak {
		score -= 20
	}

	for _, w := range commonWords {
		if strings.Contains(lower, w) {
			score -= 15
			break
		}
	}
	if hasTriple(password) {
		score -= 10
	}

	return max(0, min(MaxScore, score))
}

// Issues перечисляет недостатки пароля для отчёта безопасности.
func Issues(password string) []string {
	var issues []string
	if utf8.RuneCountInString(password) < MinLength {
		issues = append(issues, "Password is too short (minimum 8 characters)")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		issues = append(issues, "Missing uppercase letters")
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		issues = append(issues, "Missing lowercase letters")
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		issues = append(issues, "Missing numbers")
	}
	if !hasSpecial(password) {
		issues = append(issues, "Missing special characters")
	}
	return issues
}

// Validate проверяет пароль учётной записи на соответствие политике.
// Возвращает список нарушений; пустой список — пароль подходит.
func Validate(password string) []string {
	var issues []string
	if utf8.RuneCountInString(password) < MinLength {
		issues = append(issues, "Password must be at least 8 characters long")
	}
	if !reUpper.MatchString(password) {
		issues = append(issues, "Password must contain at least one uppercase letter")
	}
	if !reLower.MatchString(password) {
		issues = append(issues, "Password must contain at least one lowercase letter")
	}
	if !reDigit.MatchString(password) {
		issues = append(issues, "Password must contain at least one number")
	}
	if !hasSpecial(password) {
		issues = append(issues, "Password must contain at least one special character")
	}
	lower := strings.ToLower(password)
	for _, c := range commonExact {
		if lower == c {
			issues = append(issues, "Password is too common and easily guessable")
			break
		}
	}
	return issues
}
