package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSealer(pass string) *Sealer {
	s := NewSealer(pass)
	s.memory = 8 * 1024
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	s := testSealer("passphrase")
	plain := []byte(`[{"name":"a","value":"b","domain":"c"}]`)

	sealed, err := s.Seal(plain)
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestSealer_FreshSaltPerSeal(t *testing.T) {
	s := testSealer("passphrase")
	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealer_Rejects(t *testing.T) {
	s := testSealer("passphrase")
	sealed, err := s.Seal([]byte("secret cookies"))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff

	tests := []struct {
		name string
		data []byte
		s    *Sealer
	}{
		{name: "wrong passphrase", data: sealed, s: testSealer("other")},
		{name: "tampered", data: tampered, s: s},
		{name: "truncated", data: sealed[:len(sealMagic)+4], s: s},
		{name: "plaintext", data: []byte("[]"), s: s},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.s.Open(tt.data)
			assert.Error(t, err)
		})
	}
}
