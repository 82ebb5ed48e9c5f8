package strength

import "strings"

// compromised — пароли из известных утечек. Сверка без учёта регистра и пробелов по краям.
var compromised = map[string]struct{}{
	"password123": {}, "password": {}, "12345678": {}, "qwerty": {}, "abc123": {},
	"monkey": {}, "1234567890": {}, "letmein": {}, "trustno1": {}, "dragon": {},
	"baseball": {}, "iloveyou": {}, "master": {}, "sunshine": {}, "ashley": {},
	"bailey": {}, "passw0rd": {}, "shadow": {}, "123123": {}, "654321": {},
	"superman": {}, "qazwsx": {}, "michael": {}, "football": {}, "welcome": {},
}

// Normalize приводит пароль к виду, по которому ищутся повторы и утечки.
func Normalize(password string) string {
	return strings.ToLower(strings.TrimSpace(password))
}

// IsCompromised сообщает, встречается ли пароль в списке утёкших.
func IsCompromised(password string) bool {
	_, ok := compromised[Normalize(password)]
	return ok
}

// IsWeak / IsStrong — классификация оценки для отчёта.
func IsWeak(score int) bool   { return score < WeakBelow }
func IsStrong(score int) bool { return score >= StrongFrom }

// HealthScore — общая оценка хранилища 0..100.
// Доля сильных паролей минус штрафы за утёкшие (50), слабые (30) и повторы (20).
func HealthScore(total, strong, compromised, weak, reused int) int {
	if total == 0 {
		return MaxScore
	}
	t := float64(total)
	score := float64(strong) / t * 100
	score -= float64(compromised) / t * 50
	score -= float64(weak) / t * 30
	score -= float64(reused) / t * 20
	return max(0, min(MaxScore, int(score)))
}
