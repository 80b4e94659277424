// Package resolver implements the per-record resolution order: exact email
// join, then exact external-identifier join, then fuzzy candidate scoring
// against the confidence threshold.
package resolver

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/scoring"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CandidateSource generates the fuzzy candidate set for a query record.
// blocking.Index is the usual implementation.
type CandidateSource interface {
	Candidates(query models.Record) []models.Candidate
}

// Resolver resolves query records against one reference corpus. It holds
// no per-record state: every resolution is a pure function of the query
// record, the corpus and the configuration, so records may be resolved in
// any order with identical results.
type Resolver struct {
	log        ectologger.Logger
	corpus     *models.Corpus
	source     CandidateSource
	scorer     *scoring.Scorer
	emailIndex map[string]string
	idIndex    map[string]string
}

// New creates a resolver. emailIndex maps a normalized email to the
// reference id it deterministically resolves to; idIndex does the same for
// external identifiers. Either may be nil to disable that join.
func New(
	log ectologger.Logger,
	corpus *models.Corpus,
	source CandidateSource,
	scorer *scoring.Scorer,
	emailIndex map[string]string,
	idIndex map[string]string,
) *Resolver {
	return &Resolver{
		log:        log,
		corpus:     corpus,
		source:     source,
		scorer:     scorer,
		emailIndex: emailIndex,
		idIndex:    idIndex,
	}
}

// BuildEmailIndex maps every contact email to its account id, keeping only
// contacts whose account id resolves in the account corpus. When two
// contacts share an email the lower account id wins, for reproducibility.
func BuildEmailIndex(contacts []models.Record, accounts *models.Corpus) map[string]string {
	index := make(map[string]string)
	for _, c := range contacts {
		email := c.Get(models.FieldEmail)
		accountID := c.Get(models.FieldAccountID)
		if email == "" || accountID == "" {
			continue
		}
		if _, ok := accounts.Get(accountID); !ok {
			continue
		}
		if prev, ok := index[email]; !ok || accountID < prev {
			index[email] = accountID
		}
	}
	return index
}

// BuildRecordEmailIndex maps every record's email to its own id. Used for
// the contact pass, where an email join resolves to the contact itself.
func BuildRecordEmailIndex(records []models.Record) map[string]string {
	index := make(map[string]string)
	for _, rec := range records {
		email := rec.Get(models.FieldEmail)
		id := rec.ID()
		if email == "" || id == "" {
			continue
		}
		if prev, ok := index[email]; !ok || id < prev {
			index[email] = id
		}
	}
	return index
}

// BuildExternalIDIndex maps every non-empty value of field to the id of the
// corpus record carrying it, lower id winning on duplicates.
func BuildExternalIDIndex(corpus *models.Corpus, field string) map[string]string {
	index := make(map[string]string)
	for _, rec := range corpus.Records() {
		value := rec.Get(field)
		if value == "" {
			continue
		}
		if prev, ok := index[value]; !ok || rec.ID() < prev {
			index[value] = rec.ID()
		}
	}
	return index
}

// Resolve classifies one query record. States run in strict priority order
// and are terminal on first match: email join, external-id join, fuzzy.
func (r *Resolver) Resolve(ctx context.Context, queryIndex int, query models.Record) models.MatchResult {
	_, span := tracing.StartSpan(ctx, "resolver.Resolver.Resolve")
	defer span.End()

	if email := query.Get(models.FieldEmail); email != "" {
		if id, ok := r.emailIndex[email]; ok {
			return models.MatchResult{
				QueryIndex: queryIndex,
				MatchedID:  id,
				Score:      100,
				MatchType:  models.MatchTypeEmail,
				Detail:     "Email(exact)",
			}
		}
	}

	if external := query.Get(models.FieldDefinitiveID); external != "" {
		if id, ok := r.idIndex[external]; ok {
			return models.MatchResult{
				QueryIndex: queryIndex,
				MatchedID:  id,
				Score:      100,
				MatchType:  models.MatchTypeIDExact,
				Detail:     "DefinitiveID(exact)",
			}
		}
	}

	return r.resolveFuzzy(queryIndex, query)
}

// resolveFuzzy scores every blocked candidate and picks the maximum, ties
// broken by ascending candidate id. Failing the threshold is a normal
// terminal state, not an error.
func (r *Resolver) resolveFuzzy(queryIndex int, query models.Record) models.MatchResult {
	var (
		bestID     string
		bestScore  float64
		bestDetail string
	)

	for _, cand := range r.source.Candidates(query) {
		rec, ok := r.corpus.Get(cand.ID)
		if !ok {
			continue
		}
		score, detail := r.scorer.Score(query, rec)
		if bestID == "" || score > bestScore || (score == bestScore && cand.ID < bestID) {
			bestID = cand.ID
			bestScore = score
			bestDetail = detail
		}
	}

	if bestID != "" && bestScore >= r.scorer.Config().MinScore {
		return models.MatchResult{
			QueryIndex: queryIndex,
			MatchedID:  bestID,
			Score:      bestScore,
			MatchType:  models.MatchTypeFuzzy,
			Detail:     bestDetail,
		}
	}

	return models.MatchResult{
		QueryIndex: queryIndex,
		Score:      bestScore,
		MatchType:  models.MatchTypeNone,
	}
}

// SortResults orders match results by query index. Passes resolve in query
// order already; this is a guard for callers that batch or regroup.
func SortResults(results []models.MatchResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].QueryIndex < results[j].QueryIndex
	})
}
