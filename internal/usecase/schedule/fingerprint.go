package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"roe-outage-bot/internal/domain"
)

// Canonical возвращает каноническую строку расписания:
// даты по возрастанию через «|», внутри даты интервалы в порядке хранения через «,».
func Canonical(days domain.DaySchedule) string {
	var b strings.Builder
	for i, d := range days.Dates() {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(d.String())
		b.WriteByte(':')
		for j, r := range days[d] {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(r.String())
		}
	}
	return b.String()
}

// Fingerprint считает SHA-256 канонической формы расписания.
func Fingerprint(days domain.DaySchedule) domain.Fingerprint {
	sum := sha256.Sum256([]byte(Canonical(days)))
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}
