package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in centavos. All ledger arithmetic is integer-exact;
// floats never touch stored amounts.
type Money int64

// Pesos builds a Money from a whole-peso value.
func Pesos(p int64) Money {
	return Money(p * 100)
}

// String formats the amount as pesos with two decimal places and thousands
// separators, e.g. "1,234,567.89".
func (m Money) String() string {
	neg := m < 0
	if neg {
		m = -m
	}
	whole := int64(m) / 100
	cents := int64(m) % 100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	fmt.Fprintf(&b, ".%02d", cents)
	return b.String()
}

// ParseMoney parses a decimal peso string ("1234.50", "1,234.50") into
// centavos. At most two fractional digits are accepted.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Money(v), nil
}
