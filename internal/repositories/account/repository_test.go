package account

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db, err := database.Connect(context.Background(), logger, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, logger)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("should load an empty corpus", func(t *testing.T) {
		repo := testRepository(t)
		corpus, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, corpus.Len())
	})

	t.Run("should round-trip records ordered by id", func(t *testing.T) {
		repo := testRepository(t)
		require.NoError(t, repo.Insert(ctx, models.Record{
			models.FieldID:                "a2",
			models.FieldCompany:           "Zenith Gears",
			models.FieldCity:              "Boulder",
			models.FieldOpenOpportunities: "3",
		}))
		require.NoError(t, repo.Insert(ctx, models.Record{
			models.FieldID:      "a1",
			models.FieldCompany: "Acme Widget Works",
			models.FieldWebsite: "acme.com",
			models.FieldState:   "CO",
		}))

		corpus, err := repo.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, corpus.Len())
		assert.Equal(t, "a1", corpus.At(0).ID())
		assert.Equal(t, "a2", corpus.At(1).ID())

		rec, ok := corpus.Get("a2")
		require.True(t, ok)
		assert.Equal(t, "Zenith Gears", rec.Get(models.FieldCompany))
		assert.Equal(t, 3, rec.GetInt(models.FieldOpenOpportunities))
	})

	t.Run("should omit empty columns from loaded records", func(t *testing.T) {
		repo := testRepository(t)
		require.NoError(t, repo.Insert(ctx, models.Record{
			models.FieldID:      "a1",
			models.FieldCompany: "Acme",
		}))

		corpus, err := repo.Load(ctx)
		require.NoError(t, err)
		rec, _ := corpus.Get("a1")
		assert.False(t, rec.Has(models.FieldWebsite))
		assert.False(t, rec.Has(models.FieldPhone))
	})

	t.Run("should reject a record without an id", func(t *testing.T) {
		repo := testRepository(t)
		err := repo.Insert(ctx, models.Record{models.FieldCompany: "Acme"})
		assert.Error(t, err)
	})

	t.Run("should count records", func(t *testing.T) {
		repo := testRepository(t)
		require.NoError(t, repo.Insert(ctx, models.Record{models.FieldID: "a1"}))
		require.NoError(t, repo.Insert(ctx, models.Record{models.FieldID: "a2"}))

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}
