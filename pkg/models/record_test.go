package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	t.Run("should treat empty values as absent", func(t *testing.T) {
		rec := Record{FieldCompany: "acme"}
		assert.True(t, rec.Has(FieldCompany))
		assert.False(t, rec.Has(FieldCity))

		rec.Set(FieldCompany, "")
		assert.False(t, rec.Has(FieldCompany))
		assert.NotContains(t, rec, FieldCompany)
	})

	t.Run("should parse integers leniently", func(t *testing.T) {
		rec := Record{FieldOpenOpportunities: "3"}
		assert.Equal(t, 3, rec.GetInt(FieldOpenOpportunities))
		assert.Equal(t, 0, rec.GetInt(FieldOwner))

		rec[FieldOpenOpportunities] = "many"
		assert.Equal(t, 0, rec.GetInt(FieldOpenOpportunities))
	})

	t.Run("should clone without sharing storage", func(t *testing.T) {
		rec := Record{FieldID: "a1", FieldCompany: "acme"}
		clone := rec.Clone()
		clone.Set(FieldCompany, "zenith")
		assert.Equal(t, "acme", rec.Get(FieldCompany))
	})
}

func TestNewCorpus(t *testing.T) {
	t.Run("should index records by id", func(t *testing.T) {
		corpus, err := NewCorpus([]Record{
			{FieldID: "a1", FieldCompany: "acme"},
			{FieldID: "a2", FieldCompany: "zenith"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, corpus.Len())
		rec, ok := corpus.Get("a2")
		require.True(t, ok)
		assert.Equal(t, "zenith", rec.Get(FieldCompany))
		assert.Equal(t, "a1", corpus.At(0).ID())
	})

	t.Run("should reject a missing id", func(t *testing.T) {
		_, err := NewCorpus([]Record{{FieldCompany: "acme"}})
		assert.Error(t, err)
	})

	t.Run("should reject duplicate ids", func(t *testing.T) {
		_, err := NewCorpus([]Record{
			{FieldID: "a1"},
			{FieldID: "a1"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("should tolerate a nil receiver", func(t *testing.T) {
		var corpus *Corpus
		assert.Equal(t, 0, corpus.Len())
		_, ok := corpus.Get("a1")
		assert.False(t, ok)
		assert.Nil(t, corpus.Records())
	})
}
