package blocking

import (
	"math"
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// N-gram lengths for the character vectorizer.
const (
	minNgram = 3
	maxNgram = 5
)

// SparseVector is an L2-normalized sparse TF-IDF vector keyed by vocabulary
// term index.
type SparseVector map[int]float64

// Vectorizer embeds text into a sparse character-n-gram TF-IDF space.
// N-grams are taken per whitespace token, padded with a leading and
// trailing space, so they never cross word boundaries. Fields are exported
// for gob serialization in the model cache.
type Vectorizer struct {
	Vocab map[string]int
	IDF   []float64
}

// FitVectorizer learns the vocabulary and inverse document frequencies of
// the given documents.
func FitVectorizer(docs []string) *Vectorizer {
	vocab := make(map[string]int)
	df := make([]int, 0)

	for _, doc := range docs {
		seen := make(map[int]bool)
		for _, gram := range ngrams(doc) {
			idx, ok := vocab[gram]
			if !ok {
				idx = len(vocab)
				vocab[gram] = idx
				df = append(df, 0)
			}
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}

	n := float64(len(docs))
	idf := make([]float64, len(df))
	for i, count := range df {
		// Smoothed IDF keeps unseen terms finite
		idf[i] = math.Log((1+n)/(1+float64(count))) + 1
	}

	return &Vectorizer{Vocab: vocab, IDF: idf}
}

// Transform embeds a document into the fitted space. Terms outside the
// vocabulary are ignored; an empty document yields an empty vector, which
// scores 0 against everything.
func (v *Vectorizer) Transform(doc string) SparseVector {
	vec := make(SparseVector)
	for _, gram := range ngrams(doc) {
		if idx, ok := v.Vocab[gram]; ok {
			vec[idx] += v.IDF[idx]
		}
	}

	// Float addition is order-sensitive, so the norm accumulates in ascending
	// index order; map iteration would vary the low bits between calls.
	var norm float64
	for _, idx := range sortedIndices(vec) {
		norm += vec[idx] * vec[idx]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// Cosine returns the cosine similarity of two L2-normalized sparse vectors.
// The dot product accumulates in ascending index order so identical inputs
// always produce bit-identical similarities.
func Cosine(a, b SparseVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for _, idx := range sortedIndices(a) {
		dot += a[idx] * b[idx]
	}
	return dot
}

func sortedIndices(vec SparseVector) []int {
	idxs := make([]int, 0, len(vec))
	for idx := range vec {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}

// ngrams extracts character n-grams of lengths minNgram..maxNgram from each
// space-padded token of the document.
func ngrams(doc string) []string {
	var grams []string
	for _, token := range strings.Fields(doc) {
		padded := " " + token + " "
		runes := []rune(padded)
		for n := minNgram; n <= maxNgram; n++ {
			if len(runes) < n {
				continue
			}
			for i := 0; i+n <= len(runes); i++ {
				grams = append(grams, string(runes[i:i+n]))
			}
		}
	}
	return grams
}

// TextIndex is a fitted similarity index over a reference corpus: the
// vectorizer plus every reference record's embedded composite text. It is
// the artifact persisted by the model cache.
type TextIndex struct {
	Vectorizer *Vectorizer
	DocIDs     []string
	DocVectors []SparseVector
}

// FitTextIndex embeds every corpus record's composite text.
func FitTextIndex(corpus *models.Corpus) *TextIndex {
	docs := make([]string, corpus.Len())
	ids := make([]string, corpus.Len())
	for i, rec := range corpus.Records() {
		docs[i] = normalizers.CompositeText(rec)
		ids[i] = rec.ID()
	}

	vectorizer := FitVectorizer(docs)
	vectors := make([]SparseVector, len(docs))
	for i, doc := range docs {
		vectors[i] = vectorizer.Transform(doc)
	}

	return &TextIndex{Vectorizer: vectorizer, DocIDs: ids, DocVectors: vectors}
}

// Scored is one similarity-search hit.
type Scored struct {
	ID         string
	Similarity float64
}

// TopN returns the n reference records most similar to the query text, in
// descending similarity with ties broken by ascending id. Hits below minSim
// are dropped.
func (ix *TextIndex) TopN(text string, n int, minSim float64) []Scored {
	if ix == nil || len(ix.DocIDs) == 0 || n <= 0 {
		return nil
	}

	query := ix.Vectorizer.Transform(text)
	if len(query) == 0 {
		return nil
	}

	hits := make([]Scored, 0, len(ix.DocIDs))
	for i, vec := range ix.DocVectors {
		sim := Cosine(query, vec)
		if sim >= minSim {
			hits = append(hits, Scored{ID: ix.DocIDs[i], Similarity: sim})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > n {
		hits = hits[:n]
	}
	return hits
}
