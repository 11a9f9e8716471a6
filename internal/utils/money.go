package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RoundCents snaps a currency amount to two decimals.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatAmount keeps consistent decimal formatting for currency fields.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// ParseAmount reads a user-typed amount. "$1,250.50" and "1250.5" both work.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount out of range")
	}
	return v, nil
}
