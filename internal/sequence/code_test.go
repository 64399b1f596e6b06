package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "HD001", Format("HD", 1, 3))
	assert.Equal(t, "HD042", Format("HD", 42, 3))
	assert.Equal(t, "HD999", Format("HD", 999, 3))
	assert.Equal(t, "HD1000", Format("HD", 1000, 3))
	assert.Equal(t, "INV00007", Format("INV", 7, 5))
}

func TestOrdinal(t *testing.T) {
	n, ok := Ordinal("HD", "HD001")
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	n, ok = Ordinal("HD", "HD1234")
	assert.True(t, ok)
	assert.Equal(t, int64(1234), n)
}

func TestOrdinalMalformed(t *testing.T) {
	cases := []string{"", "HD", "HDABC", "HD12X", "XX001", "HD-5"}
	for _, code := range cases {
		_, ok := Ordinal("HD", code)
		assert.False(t, ok, "code %q should be rejected", code)
	}
}

func TestFormatOrdinalRoundTrip(t *testing.T) {
	for _, n := range []int64{1, 9, 10, 99, 100, 999, 1000, 123456} {
		code := Format("HD", n, 3)
		got, ok := Ordinal("HD", code)
		assert.True(t, ok)
		assert.Equal(t, n, got)
	}
}
