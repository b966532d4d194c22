package dataset

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reCodePrefix = regexp.MustCompile(`^р\.?`)
	reParens     = regexp.MustCompile(`^\((.+)\)$`)
)

// NormalizeCode strips a leading row marker ("р." or "р") and surrounding
// space. ok is false when what remains is not all ASCII digits.
func NormalizeCode(key string) (string, bool) {
	k := strings.TrimSpace(key)
	k = strings.TrimSpace(reCodePrefix.ReplaceAllString(k, ""))
	if k == "" {
		return "", false
	}
	for _, r := range k {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return k, true
}

// ToFloat coerces a decoded JSON value into an amount. ok is false for
// "no value" tokens and for anything that cannot be read as a finite number.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return finite(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		return parseAmount(x)
	default:
		return 0, false
	}
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "null", "none":
		return 0, false
	}
	if m := reParens.FindStringSubmatch(s); m != nil {
		inner, ok := parseAmount(m[1])
		if !ok {
			return 0, false
		}
		return -inner, true
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, "\u202f", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
