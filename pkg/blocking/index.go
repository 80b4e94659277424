// Package blocking restricts the fuzzy search space for each query record
// to a bounded candidate set, combining deterministic exact-key lookups
// with a character-n-gram text-similarity index.
package blocking

import (
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// blockFields are the deterministic block keys, in candidate-emission order.
var blockFields = []string{
	models.FieldPhone,
	models.FieldWebsite,
	models.FieldPostalCode,
	models.FieldState,
}

// Config bounds the similarity side of candidate generation.
type Config struct {
	TopN          int     // candidates taken from the text index
	MinSimilarity float64 // cosine floor below which hits are discarded
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopN:          25,
		MinSimilarity: 0.1,
	}
}

// Index generates candidate sets for query records against one reference
// corpus. Construction builds the deterministic blocks; the text index is
// supplied separately so callers can reuse a cached fit.
type Index struct {
	log    ectologger.Logger
	blocks map[string]map[string][]string
	text   *TextIndex
	cfg    Config
}

// NewIndex builds the deterministic blocks for a corpus. text may be nil,
// in which case only deterministic candidates are produced.
func NewIndex(log ectologger.Logger, corpus *models.Corpus, text *TextIndex, cfg Config) *Index {
	blocks := make(map[string]map[string][]string, len(blockFields))
	for _, field := range blockFields {
		blocks[field] = BuildBlock(corpus, field)
	}

	return &Index{
		log:    log,
		blocks: blocks,
		text:   text,
		cfg:    cfg,
	}
}

// BuildBlock maps every non-empty value of field to the sorted ids of the
// corpus records carrying it.
func BuildBlock(corpus *models.Corpus, field string) map[string][]string {
	block := make(map[string][]string)
	for _, rec := range corpus.Records() {
		if v := rec.Get(field); v != "" {
			block[v] = append(block[v], rec.ID())
		}
	}
	for _, ids := range block {
		sort.Strings(ids)
	}
	return block
}

// Candidates returns the candidate set for one query record: deterministic
// block hits first (field order, ids ascending), then text-similarity hits,
// deduplicated. The query's own id is never included, so a query list that
// overlaps the reference corpus cannot match a record to itself.
func (ix *Index) Candidates(query models.Record) []models.Candidate {
	selfID := query.ID()
	seen := make(map[string]bool)
	var out []models.Candidate

	for _, field := range blockFields {
		value := query.Get(field)
		if value == "" {
			continue
		}
		for _, id := range ix.blocks[field][value] {
			if id == selfID || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, models.Candidate{ID: id, Reason: "block:" + field})
		}
	}

	if ix.text != nil {
		text := normalizers.CompositeText(query)
		for _, hit := range ix.text.TopN(text, ix.cfg.TopN, ix.cfg.MinSimilarity) {
			if hit.ID == selfID || seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			out = append(out, models.Candidate{ID: hit.ID, Reason: "similarity"})
		}
	}

	return out
}
