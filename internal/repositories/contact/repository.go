// Package contact loads the reference contact corpus from the linkage
// database.
package contact

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/internal/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "contacts"

var columns = []string{
	"id", "account_id", "email", "first_name", "last_name", "title", "phone",
}

// Repository handles contact corpus persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type row struct {
	ID        string         `db:"id"`
	AccountID sql.NullString `db:"account_id"`
	Email     sql.NullString `db:"email"`
	FirstName sql.NullString `db:"first_name"`
	LastName  sql.NullString `db:"last_name"`
	Title     sql.NullString `db:"title"`
	Phone     sql.NullString `db:"phone"`
}

func (r row) record() models.Record {
	rec := models.Record{models.FieldID: r.ID}
	set := func(field string, v sql.NullString) {
		if v.Valid && v.String != "" {
			rec[field] = v.String
		}
	}
	set(models.FieldAccountID, r.AccountID)
	set(models.FieldEmail, r.Email)
	set(models.FieldFirstName, r.FirstName)
	set(models.FieldLastName, r.LastName)
	set(models.FieldTitle, r.Title)
	set(models.FieldPhone, r.Phone)
	return rec
}

// EnsureSchema creates the contacts table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.EnsureSchema")
	defer span.End()

	ctb := sqlbuilder.SQLite.NewCreateTableBuilder()
	ctb.CreateTable(table).IfNotExists()
	ctb.Define("id", "TEXT", "PRIMARY KEY")
	ctb.Define("account_id", "TEXT", "NOT NULL")
	ctb.Define("email", "TEXT", "NOT NULL")
	ctb.Define("first_name", "TEXT")
	ctb.Define("last_name", "TEXT")
	ctb.Define("title", "TEXT")
	ctb.Define("phone", "TEXT")

	query, args := ctb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create contacts table")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contacts table")
	}
	return nil
}

// Insert stores one contact record. Email and account id are mandatory at
// the schema level, so reject them here instead of at pass time.
func (r *Repository) Insert(ctx context.Context, rec models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Insert")
	defer span.End()

	if rec.ID() == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "contact record is missing an id")
	}
	if !rec.Has(models.FieldEmail) || !rec.Has(models.FieldAccountID) {
		return httperror.NewHTTPError(http.StatusBadRequest, "contact record requires email and account_id")
	}

	sb := sqlbuilder.SQLite.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		rec.ID(),
		rec.Get(models.FieldAccountID),
		rec.Get(models.FieldEmail),
		rec.Get(models.FieldFirstName),
		rec.Get(models.FieldLastName),
		rec.Get(models.FieldTitle),
		rec.Get(models.FieldPhone),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", rec.ID()).Error("Failed to insert contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert contact")
	}
	return nil
}

// Load reads the full contact corpus, ordered by id.
func (r *Repository) Load(ctx context.Context) (*models.Corpus, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Load")
	defer span.End()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.OrderBy("id")

	query, args := sb.Build()
	return r.selectCorpus(ctx, query, args)
}

// ListByAccountIDs reads the contacts belonging to the given accounts.
func (r *Repository) ListByAccountIDs(ctx context.Context, accountIDs []string) (*models.Corpus, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ListByAccountIDs")
	defer span.End()

	if len(accountIDs) == 0 {
		return models.NewCorpus(nil)
	}

	ids := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		ids[i] = id
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.In("account_id", ids...))
	sb.OrderBy("id")

	query, args := sb.Build()
	return r.selectCorpus(ctx, query, args)
}

func (r *Repository) selectCorpus(ctx context.Context, query string, args []any) (*models.Corpus, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load contact corpus")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load contact corpus")
	}

	records := make([]models.Record, len(rows))
	for i, rw := range rows {
		records[i] = rw.record()
	}

	corpus, err := models.NewCorpus(records)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Contact corpus is malformed")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "contact corpus is malformed")
	}

	r.logger.WithContext(ctx).WithField("count", corpus.Len()).Info("Loaded contact corpus")
	return corpus, nil
}
