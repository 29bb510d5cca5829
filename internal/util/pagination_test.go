package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name               string
		page, size         int
		wantOffset, wantLi int
	}{
		{"defaults", 0, 0, 0, DefaultPageSize},
		{"negative page", -3, 5, 0, 5},
		{"second page", 2, 5, 5, 5},
		{"capped size", 1, 1000, 0, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, lim := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.wantOffset, off)
			assert.Equal(t, tt.wantLi, lim)
		})
	}
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 4, ParseIntDefault("", 4))
	assert.Equal(t, 4, ParseIntDefault("x", 4))
	assert.Equal(t, 9, ParseIntDefault("9", 4))
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(2, 5, 12, 5)
	assert.Equal(t, 2, m.CurrentPage)
	assert.Equal(t, 3, m.LastPage)
	assert.Equal(t, 5, m.PerPage)
	require.NotNil(t, m.From)
	require.NotNil(t, m.To)
	assert.Equal(t, 6, *m.From)
	assert.Equal(t, 10, *m.To)

	empty := NewMeta(1, 12, 0, 0)
	assert.Equal(t, 1, empty.LastPage)
	assert.Nil(t, empty.From)
	assert.Nil(t, empty.To)

	beyond := NewMeta(9, 5, 12, 0)
	assert.Equal(t, 3, beyond.LastPage)
	assert.Nil(t, beyond.From)
}
