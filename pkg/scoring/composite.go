package scoring

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// FieldKind selects the field-level similarity measure.
type FieldKind string

const (
	// KindExact scores 1.0 on exact normalized equality, 0.0 otherwise.
	KindExact FieldKind = "exact"
	// KindText scores by normalized edit distance.
	KindText FieldKind = "text"
	// KindTokenSet scores by token-set similarity, tolerant of word order.
	KindTokenSet FieldKind = "token_set"
)

// Field pairs a canonical field name with its similarity measure. The order
// of a field list fixes the scorer's summation order, keeping scores
// bit-reproducible.
type Field struct {
	Name string
	Kind FieldKind
}

// AccountFields is the fixed weighted-field ordering for the account pass.
func AccountFields() []Field {
	return []Field{
		{Name: models.FieldCompany, Kind: KindTokenSet},
		{Name: models.FieldWebsite, Kind: KindExact},
		{Name: models.FieldPhone, Kind: KindExact},
		{Name: models.FieldStreet, Kind: KindText},
		{Name: models.FieldPostalCode, Kind: KindExact},
		{Name: models.FieldCity, Kind: KindText},
		{Name: models.FieldCategory, Kind: KindTokenSet},
	}
}

// ContactFields is the fixed weighted-field ordering for the contact pass.
func ContactFields() []Field {
	return []Field{
		{Name: models.FieldEmail, Kind: KindExact},
		{Name: models.FieldFirstName, Kind: KindText},
		{Name: models.FieldLastName, Kind: KindText},
		{Name: models.FieldTitle, Kind: KindTokenSet},
		{Name: models.FieldPhone, Kind: KindExact},
	}
}

// Scorer computes composite 0-100 scores for one pass. It holds the field
// ordering and the immutable scoring configuration and is safe for reuse
// across every query record of a run.
type Scorer struct {
	fields []Field
	cfg    models.ScoringConfig
}

// NewScorer creates a scorer over a fixed field ordering.
func NewScorer(fields []Field, cfg models.ScoringConfig) *Scorer {
	return &Scorer{fields: fields, cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() models.ScoringConfig {
	return s.cfg
}

// Score computes the composite similarity of query and candidate.
//
// Each weighted field present on both sides contributes weight×similarity
// to the numerator and weight to the denominator; a field absent on either
// side is excluded from both. Named penalties are subtracted after
// weighting, only when both sides carry conflicting values. The result is
// clamped to [0, 100]. The detail string lists the non-trivial
// contributions for explainability.
func (s *Scorer) Score(query, candidate models.Record) (float64, string) {
	var weightedSum, totalWeight float64
	var details []string

	for _, f := range s.fields {
		weight := s.cfg.Weight(f.Name)
		if weight == 0 {
			continue
		}
		qv := query.Get(f.Name)
		cv := candidate.Get(f.Name)
		if qv == "" || cv == "" {
			continue
		}

		sim := fieldSimilarity(f.Kind, qv, cv)
		weightedSum += weight * sim
		totalWeight += weight

		if contribution := weight * sim; contribution > 0.1 {
			details = append(details, fmt.Sprintf("%s(%.1f)", fieldLabel(f.Name), contribution))
		}
	}

	var score float64
	if totalWeight > 0 {
		score = 100 * weightedSum / totalWeight
	}

	// Penalties apply only when both sides are present and conflict;
	// absence is not evidence of conflict.
	if p := s.cfg.Penalty(models.PenaltyLocationMismatch); p > 0 {
		qs, cs := query.Get(models.FieldState), candidate.Get(models.FieldState)
		if qs != "" && cs != "" && qs != cs {
			score -= p
			details = append(details, fmt.Sprintf("LocationPenalty(-%g)", p))
		}
	}
	if p := s.cfg.Penalty(models.PenaltyConflictingWebsite); p > 0 {
		qw, cw := query.Get(models.FieldWebsite), candidate.Get(models.FieldWebsite)
		if qw != "" && cw != "" && qw != cw {
			score -= p
			details = append(details, fmt.Sprintf("ConflictPenalty(-%g)", p))
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, strings.Join(details, ",")
}

// fieldSimilarity computes the [0,1] similarity for one field pair.
func fieldSimilarity(kind FieldKind, a, b string) float64 {
	switch kind {
	case KindExact:
		return ExactMatch(a, b)
	case KindTokenSet:
		return TokenSetRatio(a, b)
	default:
		return Levenshtein(a, b)
	}
}

// fieldLabel renders a canonical field name for detail strings:
// "postal_code" becomes "PostalCode".
func fieldLabel(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
