// Package linkage drives the two linkage passes over a query batch: an
// account pass against the full reference account corpus, then a contact
// pass scoped to the accounts the first pass matched.
package linkage

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/modelcache"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/resolver"
	"github.com/Ramsey-B/fern/pkg/scoring"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Pass names, used for routing, metrics and cache roles.
const (
	PassAccount = "account"
	PassContact = "contact"
)

// Routing classifications for account-pass results.
const (
	RouteMatched      = "matched"
	RouteManualReview = "manual_review"
)

// Config carries the scoring configuration of both passes plus the
// candidate-generation bounds. Immutable once the pipeline is built.
type Config struct {
	Account  models.ScoringConfig
	Contact  models.ScoringConfig
	Blocking blocking.Config
}

// Validate fails fast on configuration errors, before any record is
// processed. A zero contact threshold is not an error: it falls back to
// the documented default.
func (c Config) Validate() error {
	if c.Account.MinScore <= 0 {
		return fmt.Errorf("configuration error: minimum_final_score must be set and positive")
	}
	if c.Blocking.TopN <= 0 {
		return fmt.Errorf("configuration error: blocking top_n must be positive")
	}
	return nil
}

// RecordMatch is one query record's outcome plus the reference context
// attached on a successful match.
type RecordMatch struct {
	models.MatchResult
	Enrichment models.Record `json:"enrichment,omitempty"`
}

// PassReport is the ordered output of one pass. Results align with the
// query sequence: exactly one entry per query record, in query order.
// ManualReview lists the query indices routed for human review (account
// pass only).
type PassReport struct {
	Pass         string        `json:"pass"`
	Results      []RecordMatch `json:"results"`
	ManualReview []int         `json:"manual_review,omitempty"`
}

// RunReport is the combined outcome of both passes.
type RunReport struct {
	RunID   string      `json:"run_id"`
	Account *PassReport `json:"account"`
	Contact *PassReport `json:"contact,omitempty"`
}

// Pipeline links query batches against immutable reference corpora. Both
// corpora and all configuration are fixed at construction; passes share no
// mutable state across query records, so results are reproducible.
type Pipeline struct {
	log      ectologger.Logger
	accounts *models.Corpus
	contacts *models.Corpus
	cfg      Config

	accountResolver *resolver.Resolver
	contactResolver *resolver.Resolver
	contactBlock    map[string][]string
}

// NewPipeline builds a pipeline over the given corpora. contacts may be
// nil, which disables the email join and the contact pass. cache may be
// nil to always fit the similarity index fresh.
func NewPipeline(
	log ectologger.Logger,
	accounts *models.Corpus,
	contacts *models.Corpus,
	cache *modelcache.Store,
	cfg Config,
) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Contact.MinScore <= 0 {
		cfg.Contact.MinScore = models.DefaultContactMinScore
	}

	accounts, err := canonicalizeCorpus(accounts, normalizers.CanonicalizeAccount)
	if err != nil {
		return nil, fmt.Errorf("account corpus: %w", err)
	}

	var contactRecords []models.Record
	if contacts != nil {
		if err := validateContactCorpus(contacts); err != nil {
			return nil, err
		}
		contacts, err = canonicalizeCorpus(contacts, normalizers.CanonicalizeContact)
		if err != nil {
			return nil, fmt.Errorf("contact corpus: %w", err)
		}
		contactRecords = contacts.Records()
	}

	p := &Pipeline{
		log:      log,
		accounts: accounts,
		contacts: contacts,
		cfg:      cfg,
	}

	text := p.fitTextIndex(PassAccount, accounts, cache)
	accountIndex := blocking.NewIndex(log, accounts, text, cfg.Blocking)
	p.accountResolver = resolver.New(
		log,
		accounts,
		accountIndex,
		scoring.NewScorer(scoring.AccountFields(), cfg.Account),
		resolver.BuildEmailIndex(contactRecords, accounts),
		resolver.BuildExternalIDIndex(accounts, models.FieldDefinitiveID),
	)

	if contacts != nil {
		p.contactBlock = blocking.BuildBlock(contacts, models.FieldAccountID)
		p.contactResolver = resolver.New(
			log,
			contacts,
			&accountScope{block: p.contactBlock},
			scoring.NewScorer(scoring.ContactFields(), cfg.Contact),
			resolver.BuildRecordEmailIndex(contactRecords),
			nil,
		)
	}

	return p, nil
}

// Run executes the account pass and, when a contact corpus is loaded, the
// contact pass over the same query batch.
func (p *Pipeline) Run(ctx context.Context, records []models.Record) (*RunReport, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Pipeline.Run")
	defer span.End()

	report := &RunReport{RunID: uuid.New().String()}

	account, err := p.AccountPass(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Account = account

	if p.contacts != nil {
		contact, err := p.ContactPass(ctx, records, account)
		if err != nil {
			return nil, err
		}
		report.Contact = contact
	}

	return report, nil
}

// AccountPass resolves every query record against the account corpus, in
// query order. Records that resolve to none are routed to manual review;
// everything else is "matched" regardless of score magnitude.
func (p *Pipeline) AccountPass(ctx context.Context, records []models.Record) (*PassReport, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Pipeline.AccountPass")
	defer span.End()

	start := time.Now()
	log := p.log.WithContext(ctx).WithFields(map[string]any{
		"pass":         PassAccount,
		"record_count": len(records),
	})
	log.Info("Starting account pass")

	report := &PassReport{
		Pass:    PassAccount,
		Results: make([]RecordMatch, 0, len(records)),
	}

	for i, rec := range records {
		query := normalizers.CanonicalizeAccount(rec)
		result := p.accountResolver.Resolve(ctx, i, query)

		match := RecordMatch{MatchResult: result}
		if result.Matched() {
			match.Enrichment = p.enrichAccount(result.MatchedID)
		} else {
			report.ManualReview = append(report.ManualReview, i)
		}
		report.Results = append(report.Results, match)

		metrics.RecordsResolved.WithLabelValues(PassAccount, string(result.MatchType)).Inc()
		metrics.BestScore.WithLabelValues(PassAccount).Observe(result.Score)
	}

	metrics.PassDuration.WithLabelValues(PassAccount).Observe(time.Since(start).Seconds())
	log.WithFields(map[string]any{
		"matched":       len(records) - len(report.ManualReview),
		"manual_review": len(report.ManualReview),
	}).Info("Account pass complete")

	return report, nil
}

// ContactPass resolves contacts for the query records the account pass
// matched. Records without an account match are excluded by construction:
// they are neither scored nor routed under this pass, and their result is
// none with score 0.
func (p *Pipeline) ContactPass(ctx context.Context, records []models.Record, account *PassReport) (*PassReport, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Pipeline.ContactPass")
	defer span.End()

	if p.contacts == nil {
		return nil, fmt.Errorf("configuration error: contact pass requires a contact corpus")
	}
	if len(account.Results) != len(records) {
		return nil, fmt.Errorf("account pass produced %d results for %d records", len(account.Results), len(records))
	}

	start := time.Now()
	log := p.log.WithContext(ctx).WithFields(map[string]any{
		"pass":         PassContact,
		"record_count": len(records),
	})
	log.Info("Starting contact pass")

	report := &PassReport{
		Pass:    PassContact,
		Results: make([]RecordMatch, 0, len(records)),
	}

	for i, rec := range records {
		accountMatch := account.Results[i]
		if !accountMatch.Matched() {
			report.Results = append(report.Results, RecordMatch{
				MatchResult: models.MatchResult{QueryIndex: i, MatchType: models.MatchTypeNone},
			})
			continue
		}

		query := normalizers.CanonicalizeContact(rec)
		// The matched account id scopes candidate generation to that
		// account's contacts.
		query.Set(models.FieldAccountID, accountMatch.MatchedID)
		result := p.contactResolver.Resolve(ctx, i, query)

		match := RecordMatch{MatchResult: result}
		if result.Matched() {
			match.Enrichment = p.enrichContact(result.MatchedID)
		}
		report.Results = append(report.Results, match)

		metrics.RecordsResolved.WithLabelValues(PassContact, string(result.MatchType)).Inc()
		metrics.BestScore.WithLabelValues(PassContact).Observe(result.Score)
	}

	metrics.PassDuration.WithLabelValues(PassContact).Observe(time.Since(start).Seconds())
	log.Info("Contact pass complete")

	return report, nil
}

// Route classifies one account-pass result.
func Route(result models.MatchResult) string {
	if result.Matched() {
		return RouteMatched
	}
	return RouteManualReview
}

// fitTextIndex returns the similarity index for a corpus, reusing the
// cached fit when the corpus fingerprint is unchanged. Cache failures are
// never fatal: the index is refitted and the new entry stored best-effort.
func (p *Pipeline) fitTextIndex(role string, corpus *models.Corpus, cache *modelcache.Store) *blocking.TextIndex {
	if cache == nil {
		return blocking.FitTextIndex(corpus)
	}

	fp := fingerprint.Corpus(corpus)
	if index, ok := cache.Get(role, fp); ok {
		metrics.CacheLookups.WithLabelValues(role, "hit").Inc()
		p.log.WithField("role", role).Debug("Reusing cached similarity index")
		return index
	}
	metrics.CacheLookups.WithLabelValues(role, "miss").Inc()

	index := blocking.FitTextIndex(corpus)
	if err := cache.Put(role, fp, index); err != nil {
		metrics.CacheLookups.WithLabelValues(role, "write_error").Inc()
		p.log.WithError(err).WithField("role", role).Warn("Failed to store similarity index; continuing without cache")
	}
	return index
}

// enrichAccount collects the downstream context fields attached to an
// account match. Values come from the reference record by id lookup, never
// recomputed.
func (p *Pipeline) enrichAccount(id string) models.Record {
	rec, ok := p.accounts.Get(id)
	if !ok {
		return nil
	}
	return pickFields(rec,
		models.FieldCompany,
		models.FieldWebsite,
		models.FieldPhone,
		models.FieldStreet,
		models.FieldCity,
		models.FieldState,
		models.FieldPostalCode,
		models.FieldCategory,
		models.FieldDefinitiveID,
		models.FieldOwner,
		models.FieldOwnerID,
		models.FieldStatus,
		models.FieldOpenOpportunities,
	)
}

// enrichContact collects the context fields attached to a contact match.
func (p *Pipeline) enrichContact(id string) models.Record {
	rec, ok := p.contacts.Get(id)
	if !ok {
		return nil
	}
	return pickFields(rec,
		models.FieldEmail,
		models.FieldFirstName,
		models.FieldLastName,
		models.FieldTitle,
		models.FieldPhone,
		models.FieldAccountID,
	)
}

func pickFields(rec models.Record, fields ...string) models.Record {
	out := make(models.Record, len(fields))
	for _, f := range fields {
		if v := rec.Get(f); v != "" {
			out[f] = v
		}
	}
	return out
}

// canonicalizeCorpus rebuilds a corpus with every record normalized.
func canonicalizeCorpus(corpus *models.Corpus, canonicalize func(models.Record) models.Record) (*models.Corpus, error) {
	records := make([]models.Record, corpus.Len())
	for i, rec := range corpus.Records() {
		records[i] = canonicalize(rec)
	}
	return models.NewCorpus(records)
}

// validateContactCorpus fails fast when the contact corpus is missing a
// mandatory field. Partial processing over a malformed corpus would be
// misleading, so the whole pass is rejected.
func validateContactCorpus(contacts *models.Corpus) error {
	for _, rec := range contacts.Records() {
		if !rec.Has(models.FieldEmail) {
			return fmt.Errorf("schema error: contact corpus record %q is missing mandatory field %q", rec.ID(), models.FieldEmail)
		}
		if !rec.Has(models.FieldAccountID) {
			return fmt.Errorf("schema error: contact corpus record %q is missing mandatory field %q", rec.ID(), models.FieldAccountID)
		}
	}
	return nil
}

// accountScope generates contact candidates from the account-id block: all
// contacts belonging to the query's matched account.
type accountScope struct {
	block map[string][]string
}

func (s *accountScope) Candidates(query models.Record) []models.Candidate {
	accountID := query.Get(models.FieldAccountID)
	if accountID == "" {
		return nil
	}
	selfID := query.ID()
	ids := s.block[accountID]
	out := make([]models.Candidate, 0, len(ids))
	for _, id := range ids {
		if id == selfID {
			continue
		}
		out = append(out, models.Candidate{ID: id, Reason: "block:" + models.FieldAccountID})
	}
	return out
}
