package resolver

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/scoring"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// staticSource returns a fixed candidate list regardless of the query.
type staticSource struct {
	ids []string
}

func (s *staticSource) Candidates(_ models.Record) []models.Candidate {
	out := make([]models.Candidate, len(s.ids))
	for i, id := range s.ids {
		out[i] = models.Candidate{ID: id, Reason: "static"}
	}
	return out
}

func accountScorer(minScore float64) *scoring.Scorer {
	return scoring.NewScorer(scoring.AccountFields(), models.ScoringConfig{
		Weights: map[string]float64{
			models.FieldCompany: 60,
			models.FieldCity:    40,
		},
		MinScore: minScore,
	})
}

func testAccounts(t *testing.T) *models.Corpus {
	t.Helper()
	corpus, err := models.NewCorpus([]models.Record{
		{models.FieldID: "a1", models.FieldCompany: "acmewidgetworks", models.FieldCity: "denver", models.FieldDefinitiveID: "ext-1"},
		{models.FieldID: "a2", models.FieldCompany: "zenithgears", models.FieldCity: "boulder"},
		{models.FieldID: "a3", models.FieldCompany: "acmewidgetworks", models.FieldCity: "denver"},
	})
	require.NoError(t, err)
	return corpus
}

func TestResolvePriorityOrder(t *testing.T) {
	corpus := testAccounts(t)
	source := &staticSource{ids: []string{"a1", "a2", "a3"}}
	emailIndex := map[string]string{"pat@acme.com": "a2"}
	idIndex := BuildExternalIDIndex(corpus, models.FieldDefinitiveID)
	r := New(noopLogger(), corpus, source, accountScorer(70), emailIndex, idIndex)

	t.Run("email join wins over everything", func(t *testing.T) {
		// The fuzzy side would pick a1; the email says a2.
		query := models.Record{
			models.FieldEmail:        "pat@acme.com",
			models.FieldDefinitiveID: "ext-1",
			models.FieldCompany:      "acmewidgetworks",
			models.FieldCity:         "denver",
		}
		result := r.Resolve(context.Background(), 0, query)
		assert.Equal(t, models.MatchTypeEmail, result.MatchType)
		assert.Equal(t, "a2", result.MatchedID)
		assert.Equal(t, 100.0, result.Score)
	})

	t.Run("external id join wins over fuzzy", func(t *testing.T) {
		query := models.Record{
			models.FieldDefinitiveID: "ext-1",
			models.FieldCompany:      "zenithgears",
			models.FieldCity:         "boulder",
		}
		result := r.Resolve(context.Background(), 0, query)
		assert.Equal(t, models.MatchTypeIDExact, result.MatchType)
		assert.Equal(t, "a1", result.MatchedID)
	})

	t.Run("unknown email falls through to fuzzy", func(t *testing.T) {
		query := models.Record{
			models.FieldEmail:   "nobody@nowhere.com",
			models.FieldCompany: "zenithgears",
			models.FieldCity:    "boulder",
		}
		result := r.Resolve(context.Background(), 0, query)
		assert.Equal(t, models.MatchTypeFuzzy, result.MatchType)
		assert.Equal(t, "a2", result.MatchedID)
	})
}

func TestResolveFuzzy(t *testing.T) {
	corpus := testAccounts(t)
	source := &staticSource{ids: []string{"a1", "a2", "a3"}}

	t.Run("best candidate above threshold matches", func(t *testing.T) {
		r := New(noopLogger(), corpus, source, accountScorer(70), nil, nil)
		query := models.Record{models.FieldCompany: "acmewidgetworks", models.FieldCity: "denvir"}
		result := r.Resolve(context.Background(), 3, query)

		assert.Equal(t, models.MatchTypeFuzzy, result.MatchType)
		assert.Equal(t, 3, result.QueryIndex)
		assert.GreaterOrEqual(t, result.Score, 70.0)
		assert.NotEmpty(t, result.Detail)
	})

	t.Run("equal scores break ties by ascending id", func(t *testing.T) {
		// a1 and a3 are identical on the weighted fields.
		r := New(noopLogger(), corpus, &staticSource{ids: []string{"a3", "a1"}}, accountScorer(70), nil, nil)
		query := models.Record{models.FieldCompany: "acmewidgetworks", models.FieldCity: "denver"}
		result := r.Resolve(context.Background(), 0, query)
		assert.Equal(t, "a1", result.MatchedID)
	})

	t.Run("score exactly at the threshold matches", func(t *testing.T) {
		// company matches (weight 60), city does not (weight 40,
		// disjoint strings), so the score is 60 with threshold 60.
		r := New(noopLogger(), corpus, source, accountScorer(60), nil, nil)
		query := models.Record{models.FieldCompany: "zenithgears", models.FieldCity: "xxxxxxx"}
		result := r.Resolve(context.Background(), 0, query)
		assert.Equal(t, models.MatchTypeFuzzy, result.MatchType)
		assert.Equal(t, "a2", result.MatchedID)
		assert.InDelta(t, 60.0, result.Score, 0.5)
	})

	t.Run("below threshold resolves to none carrying the best score", func(t *testing.T) {
		r := New(noopLogger(), corpus, source, accountScorer(99), nil, nil)
		query := models.Record{models.FieldCompany: "zenithgear", models.FieldCity: "boulder"}
		result := r.Resolve(context.Background(), 0, query)

		assert.Equal(t, models.MatchTypeNone, result.MatchType)
		assert.Empty(t, result.MatchedID)
		assert.Greater(t, result.Score, 0.0)
	})

	t.Run("no candidates resolves to none with score zero", func(t *testing.T) {
		r := New(noopLogger(), corpus, &staticSource{}, accountScorer(70), nil, nil)
		query := models.Record{models.FieldCompany: "acmewidgetworks"}
		result := r.Resolve(context.Background(), 0, query)

		assert.Equal(t, models.MatchTypeNone, result.MatchType)
		assert.Zero(t, result.Score)
	})
}

func TestBuildEmailIndex(t *testing.T) {
	accounts := testAccounts(t)
	contacts := []models.Record{
		{models.FieldID: "c1", models.FieldEmail: "pat@acme.com", models.FieldAccountID: "a1"},
		{models.FieldID: "c2", models.FieldEmail: "lee@zenith.com", models.FieldAccountID: "a2"},
		{models.FieldID: "c3", models.FieldEmail: "gone@nowhere.com", models.FieldAccountID: "a9"},
		{models.FieldID: "c4", models.FieldEmail: "pat@acme.com", models.FieldAccountID: "a3"},
		{models.FieldID: "c5", models.FieldAccountID: "a1"},
	}

	index := BuildEmailIndex(contacts, accounts)

	assert.Equal(t, "a1", index["pat@acme.com"], "lower account id wins on duplicates")
	assert.Equal(t, "a2", index["lee@zenith.com"])
	assert.NotContains(t, index, "gone@nowhere.com", "unresolvable account ids are skipped")
	assert.Len(t, index, 2)
}

func TestBuildRecordEmailIndex(t *testing.T) {
	index := BuildRecordEmailIndex([]models.Record{
		{models.FieldID: "c2", models.FieldEmail: "pat@acme.com"},
		{models.FieldID: "c1", models.FieldEmail: "pat@acme.com"},
		{models.FieldID: "c3"},
	})
	assert.Equal(t, map[string]string{"pat@acme.com": "c1"}, index)
}

func TestBuildExternalIDIndex(t *testing.T) {
	index := BuildExternalIDIndex(testAccounts(t), models.FieldDefinitiveID)
	assert.Equal(t, map[string]string{"ext-1": "a1"}, index)
}

func TestSortResults(t *testing.T) {
	results := []models.MatchResult{
		{QueryIndex: 2}, {QueryIndex: 0}, {QueryIndex: 1},
	}
	SortResults(results)
	assert.Equal(t, 0, results[0].QueryIndex)
	assert.Equal(t, 1, results[1].QueryIndex)
	assert.Equal(t, 2, results[2].QueryIndex)
}

// Compile-time check that blocking.Index satisfies CandidateSource.
var _ CandidateSource = (*blocking.Index)(nil)
