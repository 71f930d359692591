package redact

import (
	"fmt"
	"log"
	"regexp"
	"strings"
)

var (
	authHeaderRe  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	bearerRe      = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	apiKeyValueRe = regexp.MustCompile(`(?i)(api[_-]?key(?:s)?\s*[:=]\s*)([A-Za-z0-9._\-+/=]+)`)
	headerKeyRe   = regexp.MustCompile(`(?i)(x-api-key|x-aegis-key)\s*[:=]\s*([A-Za-z0-9._\-+/=]+)`)
	tokenishKeyRe = regexp.MustCompile(`(?i)(key|token)\s*[:=]\s*([A-Za-z0-9._\-+/=]{6,})`)
)

// String redacts known secret patterns from free-form strings.
func String(s string) string {
	if s == "" {
		return s
	}

	out := s
	out = authHeaderRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = bearerRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyValueRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = headerKeyRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = tokenishKeyRe.ReplaceAllStringFunc(out, func(s string) string {
		if strings.Contains(s, "[REDACTED]") {
			return s
		}
		matches := tokenishKeyRe.FindStringSubmatch(s)
		if len(matches) < 3 {
			return s
		}
		return matches[1] + "=[REDACTED]"
	})
	for strings.Contains(out, "[REDACTED][REDACTED]") {
		out = strings.ReplaceAll(out, "[REDACTED][REDACTED]", "[REDACTED]")
	}
	return out
}

// Any formats the value with %+v and redacts secrets.
func Any(v any) string {
	return String(fmt.Sprintf("%+v", v))
}

// Sprintf formats like fmt.Sprintf and redacts the result.
func Sprintf(format string, args ...interface{}) string {
	return String(fmt.Sprintf(format, args...))
}

// Logf prints a redacted log line.
func Logf(format string, args ...interface{}) {
	log.Print(Sprintf(format, args...))
}
