package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHash = "3bb06f21d607e8c19b0638c6f9ecd3986c377d47116f737ab1964d324223bef9"

func TestIsValidHash(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "lowercase", input: sampleHash, want: true},
		{name: "uppercase", input: strings.ToUpper(sampleHash), want: true},
		{name: "surrounding whitespace", input: "  " + sampleHash + "\n", want: true},
		{name: "65 characters", input: sampleHash + "a", want: false},
		{name: "63 characters", input: sampleHash[:63], want: false},
		{name: "non hex character", input: sampleHash[:63] + "g", want: false},
		{name: "0x prefix", input: "0x" + sampleHash[:62], want: false},
		{name: "inner space", input: sampleHash[:32] + " " + sampleHash[33:], want: false},
		{name: "empty", input: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidHash(tt.input))
		})
	}
}

func TestIsValidHash_CorpusSample(t *testing.T) {
	// The frequently quoted sample is 64 characters; one extra digit must be rejected.
	assert.Len(t, sampleHash, HashLength)
	assert.True(t, IsValidHash(sampleHash))
	assert.False(t, IsValidHash(sampleHash+"f"))
}

func TestParseHash(t *testing.T) {
	hash, err := ParseHash(" " + strings.ToUpper(sampleHash) + " ")
	require.NoError(t, err)
	assert.Equal(t, TransactionHash(sampleHash), hash)
	assert.Equal(t, "3bb06f21d607e8c1...", hash.Short())
	assert.True(t, hash.Matches(strings.ToUpper(sampleHash)))

	_, err = ParseHash("not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
