package freedcamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignKnownVector(t *testing.T) {
	assert.Equal(t, "a7264911383130444a78d3134533f201656673e8", Sign("key", "secret", 1700000000))
}

func TestSignDeterministic(t *testing.T) {
	cases := []struct {
		key, secret string
		ts          int64
	}{
		{"key", "secret", 1700000000},
		{"", "", 0},
		{"ключ", "секрет", 1},
	}
	for _, tc := range cases {
		first := Sign(tc.key, tc.secret, tc.ts)
		assert.Equal(t, first, Sign(tc.key, tc.secret, tc.ts))
		assert.Len(t, first, 40)
		assert.Regexp(t, "^[0-9a-f]+$", first)
	}
}

func TestSignChangesWithEveryInput(t *testing.T) {
	base := Sign("key", "secret", 1700000000)
	assert.NotEqual(t, base, Sign("kez", "secret", 1700000000))
	assert.NotEqual(t, base, Sign("key", "secreT", 1700000000))
	assert.NotEqual(t, base, Sign("key", "secret", 1700000001))
}

func TestSignerUsesClock(t *testing.T) {
	s := NewSigner("key", "secret")
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	sig := s.Sign()
	assert.Equal(t, int64(1700000000), sig.Timestamp)
	assert.Equal(t, Sign("key", "secret", 1700000000), sig.Hash)
}
