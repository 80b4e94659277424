// Package models contains the data types shared across the linkage engine.
package models

import (
	"fmt"
	"strconv"
)

// Canonical field names used by the linkage engine. Records use these keys
// after normalization; a missing or empty value means the field is absent.
const (
	FieldID           = "id"
	FieldCompany      = "company"
	FieldStreet       = "street"
	FieldSuite        = "suite"
	FieldCity         = "city"
	FieldState        = "state"
	FieldPostalCode   = "postal_code"
	FieldCountry      = "country"
	FieldPhone        = "phone"
	FieldWebsite      = "website"
	FieldCategory     = "category"
	FieldEmail        = "email"
	FieldDefinitiveID = "definitive_id"

	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldTitle     = "title"
	FieldAccountID = "account_id"

	FieldOwner             = "owner"
	FieldOwnerID           = "owner_id"
	FieldStatus            = "status"
	FieldOpenOpportunities = "open_opportunities"
)

// Record is a flat mapping from canonical field name to value.
// An empty string and a missing key both mean "absent".
type Record map[string]string

// Get returns the value for a field, or "" when absent.
func (r Record) Get(field string) string {
	return r[field]
}

// Has reports whether a field is present with a non-empty value.
func (r Record) Has(field string) bool {
	return r[field] != ""
}

// ID returns the record's stable identifier, or "" for query records.
func (r Record) ID() string {
	return r[FieldID]
}

// GetInt returns the field parsed as an integer, or 0 when absent or
// unparseable.
func (r Record) GetInt(field string) int {
	n, err := strconv.Atoi(r[field])
	if err != nil {
		return 0
	}
	return n
}

// Set assigns a field value, treating empty as absent.
func (r Record) Set(field, value string) {
	if value == "" {
		delete(r, field)
		return
	}
	r[field] = value
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Corpus is an ordered, immutable collection of reference records with a
// unique id per entry. It is the source of truth for matching and is never
// mutated during a run.
type Corpus struct {
	records []Record
	index   map[string]int
}

// NewCorpus builds a corpus from reference records. Every record must carry
// a unique non-empty id.
func NewCorpus(records []Record) (*Corpus, error) {
	index := make(map[string]int, len(records))
	for i, rec := range records {
		id := rec.ID()
		if id == "" {
			return nil, fmt.Errorf("reference record %d is missing an id", i)
		}
		if prev, ok := index[id]; ok {
			return nil, fmt.Errorf("duplicate reference id %q at rows %d and %d", id, prev, i)
		}
		index[id] = i
	}
	return &Corpus{records: records, index: index}, nil
}

// Len returns the number of records in the corpus.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Get returns the record with the given id.
func (c *Corpus) Get(id string) (Record, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.records[i], true
}

// At returns the record at position i in corpus order.
func (c *Corpus) At(i int) Record {
	return c.records[i]
}

// Records returns the records in corpus order. Callers must not mutate the
// returned slice or its records.
func (c *Corpus) Records() []Record {
	if c == nil {
		return nil
	}
	return c.records
}
