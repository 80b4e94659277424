package models

// MatchType classifies how a query record was resolved.
type MatchType string

const (
	// MatchTypeEmail is a deterministic join on a contact email address.
	MatchTypeEmail MatchType = "email"
	// MatchTypeIDExact is a deterministic join on an external identifier.
	MatchTypeIDExact MatchType = "id_exact"
	// MatchTypeFuzzy is a weighted similarity match above the threshold.
	MatchTypeFuzzy MatchType = "fuzzy"
	// MatchTypeNone means no candidate reached the threshold.
	MatchTypeNone MatchType = "none"
)

// MatchResult is the outcome of resolving one query record against a
// reference corpus. MatchedID is empty exactly when MatchType is none.
// Score is always in [0, 100].
type MatchResult struct {
	QueryIndex int       `json:"query_index"`
	MatchedID  string    `json:"matched_id,omitempty"`
	Score      float64   `json:"score"`
	MatchType  MatchType `json:"match_type"`
	Detail     string    `json:"detail,omitempty"`
}

// Matched reports whether the record resolved to a reference id.
func (m MatchResult) Matched() bool {
	return m.MatchType != MatchTypeNone
}

// Candidate is a single blocking-stage hit: a reference id plus the reason
// it was selected.
type Candidate struct {
	ID     string
	Reason string
}
