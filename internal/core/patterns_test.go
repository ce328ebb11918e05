package core

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsZip(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"33130", true},
		{"00501", true},
		{"33130-1234", true},
		{" 33130 ", true},
		{"3313", false},
		{"331301", false},
		{"33130-12", false},
		{"ABCDE", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsZip(tt.input))
		})
	}
}

func TestIsID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1-12345678", true},
		{"9-00000001", true},
		{"12-12345678", false},
		{"1-1234567", false},
		{"112345678", false},
		{"A-12345678", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsID(tt.input))
		})
	}
}

func TestIsPhone(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"305-555-1234", true},
		{"(305) 555-1234", true},
		{"(305)555-1234", true},
		{"305.555.1234", true},
		{"305 555 1234", true},
		{"+1 305 555 1234", true},
		{"1-305-555-1234", true},
		{"3055551234", false},
		{"555-1234", false},
		{"305-555-12345", false},
		{"call me", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPhone(tt.input))
		})
	}
}

func TestIsDate(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"2024-01-15", true},
		{"01/15/2024", true},
		{"15/01/2024", true},
		{"1/5/24", true},
		{"2024-01-15 08:30", true},
		{"2024-01-15T08:30:00", true},
		{"Jan 15, 2024", true},
		{"March 3 2023", true},
		{"15 Sept. 2024", true},
		{"2024-13-01", false},
		{"13/13/2024", false},
		{"01/15-2024", false},
		{"1/15/202", false},
		{"Students", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDate(tt.input))
		})
	}
}

// Generated values of each shape must match their own predicate and none of
// the others that take precedence over it.
func TestPatterns_GeneratedValues(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	digits := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('0' + rng.Intn(10))
		}
		return string(b)
	}

	for i := 0; i < 200; i++ {
		zip := digits(5)
		assert.True(t, IsZip(zip), zip)
		assert.False(t, IsID(zip), zip)
		assert.False(t, IsPhone(zip), zip)

		zip4 := zip + "-" + digits(4)
		assert.True(t, IsZip(zip4), zip4)

		id := digits(1) + "-" + digits(8)
		assert.True(t, IsID(id), id)
		assert.False(t, IsZip(id), id)
		assert.False(t, IsPhone(id), id)

		phone := fmt.Sprintf("(%s) %s-%s", digits(3), digits(3), digits(4))
		assert.True(t, IsPhone(phone), phone)
		assert.False(t, IsZip(phone), phone)
		assert.False(t, IsID(phone), phone)

		date := fmt.Sprintf("%04d-%02d-%02d", 1990+rng.Intn(40), 1+rng.Intn(12), 1+rng.Intn(28))
		assert.True(t, IsDate(date), date)
		assert.False(t, IsZip(date), date)
		assert.False(t, IsPhone(date), date)
	}
}

func TestSpecialPatterns_Precedence(t *testing.T) {
	var order []Class
	for _, p := range specialPatterns {
		order = append(order, p.class)
	}
	assert.Equal(t, []Class{ClassID, ClassZipCode, ClassPhone, ClassDate}, order)
}
