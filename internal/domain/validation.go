package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const AccessKeyLength = 44

// NormalizeAccessKey trims whitespace and the "NFe" prefix used by infNFe@Id.
func NormalizeAccessKey(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "NFe")
}

func ValidateAccessKey(v string) error {
	if utf8.RuneCountInString(v) != AccessKeyLength {
		return fmt.Errorf("%w: chave_acesso must have %d characters", ErrInvalidInput, AccessKeyLength)
	}
	return nil
}
