package utils

import (
	"strconv"
	"strings"
)

// CardNetwork guesses the card brand from its leading digits.
// Stateless lookup used for display only; the checksum lives in the
// payment validators.
func CardNetwork(number string) string {
	n := DigitsOnly(number)
	if n == "" {
		return "unknown"
	}
	switch {
	case strings.HasPrefix(n, "4"):
		return "visa"
	case prefixInRange(n, 51, 55) || prefixInRange(n, 2221, 2720):
		return "mastercard"
	case strings.HasPrefix(n, "34") || strings.HasPrefix(n, "37"):
		return "amex"
	case strings.HasPrefix(n, "36") || strings.HasPrefix(n, "38") || prefixInRange(n, 300, 305):
		return "diners"
	case strings.HasPrefix(n, "6011") || strings.HasPrefix(n, "65"):
		return "discover"
	case strings.HasPrefix(n, "35"):
		return "jcb"
	case strings.HasPrefix(n, "1"):
		return "uatp"
	default:
		return "unknown"
	}
}

func prefixInRange(n string, lo, hi int) bool {
	width := len(strconv.Itoa(lo))
	if len(n) < width {
		return false
	}
	prefix, err := strconv.Atoi(n[:width])
	if err != nil {
		return false
	}
	return prefix >= lo && prefix <= hi
}
