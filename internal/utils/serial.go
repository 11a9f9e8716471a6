package utils

import (
	"math/rand"
	"strings"
)

const serialDigits = "0123456789"

// GenerateSerial builds a ticket/ancillary serial: prefix plus n random digits.
// Uniqueness is best-effort; the store keeps the authoritative copy.
func GenerateSerial(prefix string, n int) string {
	if n <= 0 {
		n = 13
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prefix))
	for i := 0; i < n; i++ {
		b.WriteByte(serialDigits[rand.Intn(len(serialDigits))])
	}
	return b.String()
}
