package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// emailRe matches the address check the sign-in form has always used.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MaxNameLen bounds display names shown to sellers.
const MaxNameLen = 200

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsBlank reports whether s is empty once surrounding whitespace is removed.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// DisplayName returns a trimmed name, falling back to the local part of email.
func DisplayName(name, email string) string {
	name = strings.TrimSpace(name)
	if name != "" && utf8.RuneCountInString(name) <= MaxNameLen {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
