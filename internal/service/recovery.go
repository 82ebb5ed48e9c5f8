package service

import (
	"PassKeeper/internal/crypto"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// recoveryAnswer — один сохранённый ответ на контрольный вопрос.
// Либо конверт под ключом пользователя, либо открытый текст старых учётных записей.
type recoveryAnswer struct {
	sealed    *crypto.Envelope
	plaintext string
}

// minSealedLen — короче этого конверт GCM быть не может (nonce + тег).
const minSealedLen = crypto.GCMNonceLen + crypto.GCMTagLen

// classifyAnswer относит строку к конверту, если она декодируется в base64 достаточной длины.
// Всё остальное — открытый текст.
func classifyAnswer(s string) recoveryAnswer {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) < minSealedLen {
		return recoveryAnswer{plaintext: s}
	}
	env, err := crypto.ParseEnvelope(crypto.ModeGCM, raw)
	if err != nil {
		return recoveryAnswer{plaintext: s}
	}
	return recoveryAnswer{sealed: &env}
}

// parseAnswers разбирает поле User.Answers.
// Поддерживаются JSON-массив строк, JSON-строка и произвольный текст (один ответ).
func parseAnswers(stored string) []recoveryAnswer {
	if stored == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(stored), &list); err == nil {
		out := make([]recoveryAnswer, 0, len(list))
		for _, s := range list {
			out = append(out, classifyAnswer(s))
		}
		return out
	}
	var single string
	if err := json.Unmarshal([]byte(stored), &single); err == nil {
		return []recoveryAnswer{classifyAnswer(single)}
	}
	return []recoveryAnswer{{plaintext: stored}}
}

func hasSealed(answers []recoveryAnswer) bool {
	for _, a := range answers {
		if a.sealed != nil {
			return true
		}
	}
	return false
}

// matchAnswer сравнивает ответ со всеми сохранёнными вариантами за постоянное время.
// Конверт, который не открылся, ни с чем не совпадает.
func matchAnswer(key []byte, answers []recoveryAnswer, given string) bool {
	matched := 0
	for _, a := range answers {
		candidate := a.plaintext
		if a.sealed != nil {
			plain, err := crypto.Open(key, *a.sealed)
			if err != nil {
				continue
			}
			candidate = string(plain)
		}
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(given))
	}
	return matched == 1
}

// sealAnswers запечатывает ответы и возвращает значение для User.Answers.
func sealAnswers(key []byte, answers ...string) (string, error) {
	sealed := make([]string, 0, len(answers))
	for _, a := range answers {
		s, err := crypto.SealString(key, a)
		if err != nil {
			return "", err
		}
		sealed = append(sealed, s)
	}
	b, err := json.Marshal(sealed)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return string(b), nil
}
