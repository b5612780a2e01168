package ratelimit

import "time"

// Preset tiers. They all run the same algorithm; only the numbers differ.
const (
	TierStandard = "standard"
	TierStrict   = "strict"
	TierRelaxed  = "relaxed"
	TierAuth     = "auth"
	TierAI       = "ai"
)

var tiers = map[string]Config{
	TierStandard: {MaxRequests: 100, Window: time.Minute, Identifier: TierStandard},
	TierStrict:   {MaxRequests: 10, Window: time.Minute, Identifier: TierStrict},
	TierRelaxed:  {MaxRequests: 300, Window: time.Minute, Identifier: TierRelaxed},
	TierAuth:     {MaxRequests: 5, Window: time.Minute, Identifier: TierAuth},
	TierAI:       {MaxRequests: 5, Window: time.Minute, Identifier: TierAI},
}

// Tier returns the named preset config.
func Tier(name string) (Config, bool) {
	c, ok := tiers[name]
	return c, ok
}

// Standard is the fallback tier when nothing else is configured.
func Standard() Config {
	return tiers[TierStandard]
}

// Override replaces a tier's numbers, creating the tier if it is not a
// preset. Called from config load during startup, before any checks run.
func Override(name string, maxRequests int, window time.Duration) {
	tiers[name] = Config{MaxRequests: maxRequests, Window: window, Identifier: name}
}
