package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"Hello",
		"a much longer payload that should still compress and decompress cleanly across a zlib stream boundary",
	}
	for _, c := range cases {
		compressed, err := Deflate([]byte(c))
		require.NoError(t, err)

		out, err := Inflate(compressed)
		require.NoError(t, err)
		assert.Equal(t, c, string(out))
	}
}

func TestInflateRejectsCorruptInput(t *testing.T) {
	_, err := Inflate([]byte("not a zlib stream"))
	assert.ErrorIs(t, err, ErrCorrupt)
}
