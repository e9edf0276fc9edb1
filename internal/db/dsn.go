package db

import (
	"regexp"
	"strings"
)

var passwordRe = regexp.MustCompile(`(password=|:)([^@\s:]+)(@)`)

// NormalizeDSN trims whitespace and surrounding quotes that tend to sneak in
// through .env files.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	return strings.Trim(s, "\"'")
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// MaskDSN hides the password component for log output.
func MaskDSN(dsn string) string {
	if !isPostgres(dsn) {
		return dsn
	}
	return passwordRe.ReplaceAllString(dsn, "${1}***${3}")
}
