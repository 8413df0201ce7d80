package matcher

// Config enumerates the similarity cutoffs used by the matcher, one per
// entity type. The values are tunable: observed good values keep shifting as
// more real meet documents are imported, so they are bound to environment
// configuration instead of being compiled in.
type Config struct {
	// Meeting is the auto-accept cutoff for meeting name matches.
	Meeting float64 `mapstructure:"meeting_cutoff" default:"0.80"`
	// Team is the auto-accept cutoff for team name matches.
	Team float64 `mapstructure:"team_cutoff" default:"0.80"`
	// Pool is the auto-accept cutoff for pool name matches.
	Pool float64 `mapstructure:"pool_cutoff" default:"0.80"`
	// City is the auto-accept cutoff for city name matches.
	City float64 `mapstructure:"city_cutoff" default:"0.80"`
	// Swimmer is the auto-accept cutoff for the primary full-identity
	// swimmer query.
	Swimmer float64 `mapstructure:"swimmer_cutoff" default:"0.60"`
	// SwimmerFallback is the auto-accept cutoff for the reduced
	// surname-only fallback query.
	SwimmerFallback float64 `mapstructure:"swimmer_fallback_cutoff" default:"0.74"`
	// GenderInference is the minimum score required before a fuzzy match
	// may be used to infer a missing gender. Stricter than the general
	// "good" tier: a lower-confidence inference risks silently assigning
	// the wrong identity.
	GenderInference float64 `mapstructure:"gender_inference_cutoff" default:"0.90"`
	// FallbackLimit caps the number of candidates returned by the reduced
	// fallback query.
	FallbackLimit int `mapstructure:"fallback_limit" default:"5"`
}
