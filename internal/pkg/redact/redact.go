// redact маскирует чувствительные данные перед записью в лог.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email маскирует e-mail, сохраняя домен: "foobar@example.com" -> "fo***@example.com".
// Строка без ровно одного '@' маскируется целиком.
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := []rune(s[:i]), s[i+1:]
	if len(local) <= 2 {
		return "***@" + domain
	}

	return string(local[:2]) + "***@" + domain
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }

// Fingerprint — короткий необратимый отпечаток секрета (первые 8 hex-символов
// SHA-256). Позволяет связать записи лога об одном токене, не раскрывая его.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}
