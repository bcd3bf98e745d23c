package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"₹1,23,456", 123456, true},
		{"Rs. 2,499", 2499, true},
		{"Rs999", 999, true},
		{"$1,299", 1299, true},
		{"4.3 ★ (120) ₹54,990", 54990, true},
		{"54990", 54990, true},
		{"₹ 1 299", 1299, true},
		{"Rs. 12 345", 12345, true},
		{"1 299", 1299, true},
		{"₹\u00a01,299", 1299, true},
		{"€\u202f2\u00a0499", 2499, true},
		{"₹54,990 4.3", 54990, true},
		{"price on request", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePrice(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4.3", 4.3, true},
		{"4.3 ★", 4.3, true},
		{"Rated 5", 5, true},
		{"1", 1, true},
		{"0.9", 0, false},
		{"12,345 ratings", 0, false},
		{"new", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRating(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Apple MacBook Air", NormalizeName("  Apple\n\tMacBook   Air "))
	assert.Equal(t, "", NormalizeName("TV"))
	assert.Equal(t, "Pen", NormalizeName("Pen"))

	long := strings.Repeat("é", 200)
	assert.Equal(t, maxNameLength, len([]rune(NormalizeName(long))))
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://www.example.com/search?q=laptop"
	assert.Equal(t, "https://www.example.com/p/123", AbsoluteURL(base, "/p/123"))
	assert.Equal(t, "https://cdn.example.com/x", AbsoluteURL(base, "https://cdn.example.com/x"))
	assert.Equal(t, "https://www.example.com/item?id=1", AbsoluteURL(base, "item?id=1"))
	assert.Equal(t, "", AbsoluteURL("not a url", "/p/1"))
}
