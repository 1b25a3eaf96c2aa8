package emailutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"buyer@example.com", true},
		{"a.b+c@sub.example.co.uk", true},
		{"no-at-sign.example.com", false},
		{"two@@example.com", false},
		{"user@localhost", false},
		{"user name@example.com", false},
		{"user@exa mple.com", false},
		{"@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.input))
		})
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("buyer@Example.COM"))
	assert.Equal(t, "", Domain("not-an-email"))
	assert.Equal(t, "", Domain("a@b@c"))
}
