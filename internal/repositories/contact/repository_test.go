package contact

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

func seed(t *testing.T, repo *Repository) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range []models.Record{
		{models.FieldID: "c1", models.FieldAccountID: "a1", models.FieldEmail: "pat@acme.com", models.FieldFirstName: "Pat"},
		{models.FieldID: "c2", models.FieldAccountID: "a2", models.FieldEmail: "lee@zenith.com"},
		{models.FieldID: "c3", models.FieldAccountID: "a1", models.FieldEmail: "jo@acme.com"},
	} {
		require.NoError(t, repo.Insert(ctx, rec))
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("should load the full corpus ordered by id", func(t *testing.T) {
		repo := testRepository(t)
		seed(t, repo)

		corpus, err := repo.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, corpus.Len())
		assert.Equal(t, "c1", corpus.At(0).ID())
		assert.Equal(t, "c3", corpus.At(2).ID())
	})

	t.Run("should list contacts by account ids", func(t *testing.T) {
		repo := testRepository(t)
		seed(t, repo)

		corpus, err := repo.ListByAccountIDs(ctx, []string{"a1"})
		require.NoError(t, err)
		require.Equal(t, 2, corpus.Len())
		assert.Equal(t, "c1", corpus.At(0).ID())
		assert.Equal(t, "c3", corpus.At(1).ID())
	})

	t.Run("should return an empty corpus for no account ids", func(t *testing.T) {
		repo := testRepository(t)
		seed(t, repo)

		corpus, err := repo.ListByAccountIDs(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, corpus.Len())
	})

	t.Run("should reject a contact without mandatory fields", func(t *testing.T) {
		repo := testRepository(t)

		err := repo.Insert(ctx, models.Record{models.FieldID: "c1", models.FieldAccountID: "a1"})
		assert.Error(t, err, "missing email")

		err = repo.Insert(ctx, models.Record{models.FieldID: "c1", models.FieldEmail: "pat@acme.com"})
		assert.Error(t, err, "missing account id")

		err = repo.Insert(ctx, models.Record{models.FieldEmail: "pat@acme.com", models.FieldAccountID: "a1"})
		assert.Error(t, err, "missing id")
	})
}
