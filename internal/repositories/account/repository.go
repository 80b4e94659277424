// Package account loads the reference account corpus from the linkage
// database.
package account

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/internal/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "accounts"

var columns = []string{
	"id", "company", "street", "suite", "city", "state", "postal_code",
	"country", "phone", "website", "category", "definitive_id",
	"owner", "owner_id", "status", "open_opportunities",
}

// Repository handles account corpus persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new account repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type row struct {
	ID                string         `db:"id"`
	Company           sql.NullString `db:"company"`
	Street            sql.NullString `db:"street"`
	Suite             sql.NullString `db:"suite"`
	City              sql.NullString `db:"city"`
	State             sql.NullString `db:"state"`
	PostalCode        sql.NullString `db:"postal_code"`
	Country           sql.NullString `db:"country"`
	Phone             sql.NullString `db:"phone"`
	Website           sql.NullString `db:"website"`
	Category          sql.NullString `db:"category"`
	DefinitiveID      sql.NullString `db:"definitive_id"`
	Owner             sql.NullString `db:"owner"`
	OwnerID           sql.NullString `db:"owner_id"`
	Status            sql.NullString `db:"status"`
	OpenOpportunities sql.NullInt64  `db:"open_opportunities"`
}

func (r row) record() models.Record {
	rec := models.Record{models.FieldID: r.ID}
	set := func(field string, v sql.NullString) {
		if v.Valid && v.String != "" {
			rec[field] = v.String
		}
	}
	set(models.FieldCompany, r.Company)
	set(models.FieldStreet, r.Street)
	set(models.FieldSuite, r.Suite)
	set(models.FieldCity, r.City)
	set(models.FieldState, r.State)
	set(models.FieldPostalCode, r.PostalCode)
	set(models.FieldCountry, r.Country)
	set(models.FieldPhone, r.Phone)
	set(models.FieldWebsite, r.Website)
	set(models.FieldCategory, r.Category)
	set(models.FieldDefinitiveID, r.DefinitiveID)
	set(models.FieldOwner, r.Owner)
	set(models.FieldOwnerID, r.OwnerID)
	set(models.FieldStatus, r.Status)
	if r.OpenOpportunities.Valid {
		rec[models.FieldOpenOpportunities] = strconv.FormatInt(r.OpenOpportunities.Int64, 10)
	}
	return rec
}

// EnsureSchema creates the accounts table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.EnsureSchema")
	defer span.End()

	ctb := sqlbuilder.SQLite.NewCreateTableBuilder()
	ctb.CreateTable(table).IfNotExists()
	ctb.Define("id", "TEXT", "PRIMARY KEY")
	ctb.Define("company", "TEXT")
	ctb.Define("street", "TEXT")
	ctb.Define("suite", "TEXT")
	ctb.Define("city", "TEXT")
	ctb.Define("state", "TEXT")
	ctb.Define("postal_code", "TEXT")
	ctb.Define("country", "TEXT")
	ctb.Define("phone", "TEXT")
	ctb.Define("website", "TEXT")
	ctb.Define("category", "TEXT")
	ctb.Define("definitive_id", "TEXT")
	ctb.Define("owner", "TEXT")
	ctb.Define("owner_id", "TEXT")
	ctb.Define("status", "TEXT")
	ctb.Define("open_opportunities", "INTEGER")

	query, args := ctb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create accounts table")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create accounts table")
	}
	return nil
}

// Insert stores one account record. Used by corpus seeding; the linkage
// passes themselves never write.
func (r *Repository) Insert(ctx context.Context, rec models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Insert")
	defer span.End()

	if rec.ID() == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "account record is missing an id")
	}

	var opportunities any
	if rec.Has(models.FieldOpenOpportunities) {
		opportunities = rec.GetInt(models.FieldOpenOpportunities)
	}

	sb := sqlbuilder.SQLite.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		rec.ID(),
		rec.Get(models.FieldCompany),
		rec.Get(models.FieldStreet),
		rec.Get(models.FieldSuite),
		rec.Get(models.FieldCity),
		rec.Get(models.FieldState),
		rec.Get(models.FieldPostalCode),
		rec.Get(models.FieldCountry),
		rec.Get(models.FieldPhone),
		rec.Get(models.FieldWebsite),
		rec.Get(models.FieldCategory),
		rec.Get(models.FieldDefinitiveID),
		rec.Get(models.FieldOwner),
		rec.Get(models.FieldOwnerID),
		rec.Get(models.FieldStatus),
		opportunities,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", rec.ID()).Error("Failed to insert account")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert account")
	}
	return nil
}

// Load reads the full account corpus, ordered by id for reproducible
// fingerprints.
func (r *Repository) Load(ctx context.Context) (*models.Corpus, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Load")
	defer span.End()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.OrderBy("id")

	query, args := sb.Build()
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load account corpus")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load account corpus")
	}

	records := make([]models.Record, len(rows))
	for i, rw := range rows {
		records[i] = rw.record()
	}

	corpus, err := models.NewCorpus(records)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Account corpus is malformed")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "account corpus is malformed")
	}

	r.logger.WithContext(ctx).WithField("count", corpus.Len()).Info("Loaded account corpus")
	return corpus, nil
}

// Count returns the number of account records.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Count")
	defer span.End()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count accounts")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count accounts")
	}
	return count, nil
}
