package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventCursorRoundTrip(t *testing.T) {
	timestamp := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	encoded := EncodeEventCursor(timestamp, "01hqzx3y4k6f7g8h9j0k1m2n3p")

	cursor, err := DecodeEventCursor(encoded)

	require.NoError(t, err)
	require.Equal(t, timestamp, cursor.Timestamp)
	require.Equal(t, "01HQZX3Y4K6F7G8H9J0K1M2N3P", cursor.ULID)
}

func TestDecodeEventCursorInvalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not-base64!!!",
		"bm8tY29sb24",       // "no-colon"
		"YWJjOjAxSFFaWA",    // "abc:01HQZX" non-numeric timestamp
		"MTcxNzIzNDAwMDo",   // "1717234000:" empty ULID
	}

	for _, c := range cases {
		_, err := DecodeEventCursor(c)
		require.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", c)
	}
}
