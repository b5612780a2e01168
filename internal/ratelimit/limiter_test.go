package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetInCountdown(t *testing.T) {
	oldest := time.Unix(1_700_000_000, 0)
	window := time.Minute

	cases := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"at the oldest instant", 0, 60},
		{"one ms in", time.Millisecond, 60},
		{"half a second in", 500 * time.Millisecond, 60},
		{"58.5s in rounds up", 58*time.Second + 500*time.Millisecond, 2},
		{"59s in", 59 * time.Second, 1},
		{"59.5s in clamps to one", 59*time.Second + 500*time.Millisecond, 1},
		{"exactly expired", time.Minute, 1},
		{"past the window clamps to one", 61 * time.Second, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResetIn(oldest, window, oldest.Add(tc.elapsed))
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 1)
		})
	}
}

func TestTierPresets(t *testing.T) {
	for name, wantMax := range map[string]int{
		TierStandard: 100,
		TierStrict:   10,
		TierRelaxed:  300,
		TierAuth:     5,
		TierAI:       5,
	} {
		cfg, ok := Tier(name)
		require.True(t, ok, name)
		assert.Equal(t, wantMax, cfg.MaxRequests, name)
		assert.Equal(t, time.Minute, cfg.Window, name)
		assert.Equal(t, name, cfg.Identifier, name)
	}

	_, ok := Tier("nope")
	assert.False(t, ok)
	assert.Equal(t, 100, Standard().MaxRequests)
}

func TestConfigValid(t *testing.T) {
	assert.True(t, Config{MaxRequests: 1, Window: time.Millisecond}.Valid())
	assert.False(t, Config{MaxRequests: 0, Window: time.Minute}.Valid())
	assert.False(t, Config{MaxRequests: 5}.Valid())
}
