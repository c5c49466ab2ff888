package classroom

import (
	"crypto/rand"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Class codes are 6 characters from an alphabet that excludes I, O, 0 and 1
// to avoid visual ambiguity when read off a whiteboard.
const (
	CodeLength   = 6
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	classCodeTag  = "classcode"
	classCodeText = "must be a 6-character class code"
)

// GenerateCode returns a new random class code.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(buf), nil
}

// NormalizeCode uppercases and trims a human-entered class code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode reports whether code is a normalized, well-formed class code.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(CodeAlphabet, c) {
			return false
		}
	}
	return true
}

// classCodeValidation validates a normalized class code field.
func classCodeValidation(fl validator.FieldLevel) bool {
	return IsValidCode(fl.Field().String())
}
