package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDate(t *testing.T) {
	want := time.Date(2016, time.January, 26, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
	}{
		{"iso date", "2016-01-26"},
		{"time value", want},
		{"epoch int", 1453766400},
		{"epoch int64", int64(1453766400)},
		{"epoch string", "1453766400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveDate(tt.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	got, err := DeriveDate("2016-01-26T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	_, err = DeriveDate("not a date")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = DeriveDate(true)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "2016-01-26", formatTime(time.Date(2016, 1, 26, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2016-01-26T10:30:00Z", formatTime(time.Date(2016, 1, 26, 10, 30, 0, 0, time.UTC)))
}

func TestScopeLookup(t *testing.T) {
	s := Scope{
		"site": map[string]any{"params": map[any]any{"x": 1}},
		"data": Scope{"menu": []any{"a"}},
	}
	v, ok := s.Lookup("site.params.x")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = s.Lookup("data.menu")
	assert.True(t, ok)
	assert.Equal(t, []any{"a"}, v)

	_, ok = s.Lookup("site.missing")
	assert.False(t, ok)
	_, ok = s.Lookup("site.params.x.y")
	assert.False(t, ok)
}
