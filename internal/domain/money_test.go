package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "0.00", Money(0).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "1.00", Money(100).String())
	assert.Equal(t, "1,234,567.89", Money(123456789).String())
	assert.Equal(t, "-1,234.50", Money(-123450).String())
	assert.Equal(t, "45,000,000.00", Pesos(45_000_000).String())
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want Money
	}{
		{"0", 0},
		{"1234.50", 123450},
		{"1,234.50", 123450},
		{"1234", 123400},
		{"1234.5", 123450},
		{"-10.25", -1025},
		{" 99.99 ", 9999},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		require.NoError(t, err, "parsing %q", tc.in)
		assert.Equal(t, tc.want, got, "parsing %q", tc.in)
	}
}

func TestParseMoneyRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "1.2.3"} {
		_, err := ParseMoney(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseMoneyRoundTrips(t *testing.T) {
	for _, m := range []Money{0, 1, 99, 100, 123450, 123456789} {
		parsed, err := ParseMoney(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}
