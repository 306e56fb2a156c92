package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxQueryLength = 200

// SanitizeQuery limpia el texto de búsqueda: sin caracteres de control, espacios colapsados,
// máximo MaxQueryLength runas.
func SanitizeQuery(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", NewError(KindSanitizationFailed, "query is not valid utf-8", map[string]any{"field": "query"})
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewError(KindInvalidInput, "empty query", map[string]any{"field": "query", "reason": "empty"})
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	space := false
	for _, r := range trimmed {
		switch {
		case unicode.IsSpace(r):
			if !space {
				b.WriteRune(' ')
			}
			space = true
			continue
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			continue
		}
		space = false
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", NewError(KindSanitizationFailed, "query has no printable characters", map[string]any{"field": "query"})
	}
	if n := utf8.RuneCountInString(out); n > MaxQueryLength {
		return "", NewError(KindInvalidInput, "query too long", map[string]any{
			"field": "query", "reason": "too_long", "max": MaxQueryLength, "len": n,
		})
	}
	return out, nil
}

// ValidateTrackIndex: idx en [0, n).
func ValidateTrackIndex(idx, n int) error {
	if idx < 0 || idx >= n {
		return NewError(KindInvalidTrackIndex, "index out of range", map[string]any{"index": idx, "len": n})
	}
	return nil
}

// ParseTrackIndex parsea un índice que viene de un custom id o de un select menu.
func ParseTrackIndex(raw string, n int) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &Error{Kind: KindInvalidInput, Message: "index is not a number", Details: map[string]any{"field": "index"}, Err: err}
	}
	if err := ValidateTrackIndex(idx, n); err != nil {
		return 0, err
	}
	return idx, nil
}

// IsSnowflake: ids de Discord son enteros decimales de 17 a 20 dígitos.
func IsSnowflake(id string) bool {
	if len(id) < 17 || len(id) > 20 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
