package models

// Named penalties recognized by the scorer. A missing penalty entry means
// no deduction.
const (
	PenaltyLocationMismatch   = "location_mismatch_penalty"
	PenaltyConflictingWebsite = "conflicting_website_penalty"
)

// DefaultContactMinScore is the contact-pass threshold used when the
// configuration leaves minimum_contact_score unset.
const DefaultContactMinScore = 60

// ScoringConfig holds the field weights, named penalties and minimum score
// for one linkage pass. It is immutable for the duration of a run. Weights
// need not sum to 100; the scorer re-normalizes against the weights of the
// fields actually present on both sides of a comparison. Missing weight or
// penalty entries default to zero effect.
type ScoringConfig struct {
	Weights   map[string]float64 `json:"weights" yaml:"weights"`
	Penalties map[string]float64 `json:"penalties" yaml:"penalties"`
	MinScore  float64            `json:"min_score" yaml:"min_score"`
}

// Weight returns the configured weight for a field, or 0 when absent.
func (c ScoringConfig) Weight(field string) float64 {
	return c.Weights[field]
}

// Penalty returns the configured deduction for a named penalty, or 0.
func (c ScoringConfig) Penalty(name string) float64 {
	return c.Penalties[name]
}
