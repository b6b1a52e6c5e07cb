package core

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChallenge(t *testing.T) {
	challenge, err := NewChallenge()
	require.NoError(t, err)

	assert.Len(t, challenge.Nonce, 64, "nonce should be 32 bytes hex-encoded")
	assert.InDelta(t, time.Now().UnixMilli(), challenge.Timestamp, float64(time.Second.Milliseconds()))
	assert.Equal(t, BuildMessage(challenge.Nonce, challenge.Timestamp), challenge.Message)
	assert.True(t, strings.HasPrefix(challenge.Message, MessagePrefix))
}

func TestNewChallenge_UniqueNonces(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		challenge, err := NewChallenge()
		require.NoError(t, err)

		_, dup := seen[challenge.Nonce]
		require.False(t, dup, "nonce repeated")
		seen[challenge.Nonce] = struct{}{}
	}
}

func TestBuildMessage_Deterministic(t *testing.T) {
	const nonce = "deadbeef"
	const ts = int64(1700000000000)

	first := BuildMessage(nonce, ts)
	second := BuildMessage(nonce, ts)

	assert.Equal(t, first, second)
	assert.Equal(t, fmt.Sprintf("%s %s.%d", MessagePrefix, nonce, ts), first)
}

func TestTimestampValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		timestamp int64
		want      bool
	}{
		{"current time", now.UnixMilli(), true},
		{"exactly TTL old", now.Add(-ChallengeTTL).UnixMilli(), true},
		{"exactly TTL ahead", now.Add(ChallengeTTL).UnixMilli(), true},
		{"one ms past TTL", now.Add(-ChallengeTTL).UnixMilli() - 1, false},
		{"one ms beyond future TTL", now.Add(ChallengeTTL).UnixMilli() + 1, false},
		{"far in the past", now.Add(-time.Hour).UnixMilli(), false},
		{"far in the future", now.Add(time.Hour).UnixMilli(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimestampValid(tt.timestamp, now))
		})
	}
}
