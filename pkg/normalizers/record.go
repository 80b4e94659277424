package normalizers

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// CanonicalizeAccount returns a copy of rec with its account matching fields
// normalized. All normalizers are idempotent, so records that arrive already
// normalized pass through unchanged.
func CanonicalizeAccount(rec models.Record) models.Record {
	out := rec.Clone()
	out.Set(models.FieldCompany, NormalizeCompany(rec.Get(models.FieldCompany)))
	out.Set(models.FieldWebsite, NormalizeWebsite(rec.Get(models.FieldWebsite)))
	out.Set(models.FieldPhone, NormalizePhone(rec.Get(models.FieldPhone)))
	out.Set(models.FieldPostalCode, NormalizePostal(rec.Get(models.FieldPostalCode)))
	out.Set(models.FieldCity, strings.ToLower(strings.TrimSpace(rec.Get(models.FieldCity))))
	out.Set(models.FieldState, NormalizeState(rec.Get(models.FieldState)))
	out.Set(models.FieldCountry, strings.ToLower(strings.TrimSpace(rec.Get(models.FieldCountry))))
	out.Set(models.FieldEmail, NormalizeEmail(rec.Get(models.FieldEmail)))
	out.Set(models.FieldCategory, strings.ToLower(strings.TrimSpace(rec.Get(models.FieldCategory))))
	out.Set(models.FieldDefinitiveID, strings.TrimSpace(rec.Get(models.FieldDefinitiveID)))

	if street := rec.Get(models.FieldStreet); street != "" {
		streetPart, suite := SplitStreetSuite(street)
		out.Set(models.FieldStreet, Alphanumeric(streetPart))
		if suite != "" {
			out.Set(models.FieldSuite, Alphanumeric(suite))
		}
	}
	return out
}

// CanonicalizeContact returns a copy of rec with its contact matching fields
// normalized. Idempotent, like CanonicalizeAccount.
func CanonicalizeContact(rec models.Record) models.Record {
	out := rec.Clone()
	out.Set(models.FieldEmail, NormalizeEmail(rec.Get(models.FieldEmail)))
	out.Set(models.FieldFirstName, NormalizeName(rec.Get(models.FieldFirstName)))
	out.Set(models.FieldLastName, NormalizeName(rec.Get(models.FieldLastName)))
	out.Set(models.FieldTitle, strings.ToLower(strings.TrimSpace(rec.Get(models.FieldTitle))))
	out.Set(models.FieldPhone, NormalizePhone(rec.Get(models.FieldPhone)))
	out.Set(models.FieldAccountID, strings.TrimSpace(rec.Get(models.FieldAccountID)))
	return out
}

// CompositeText builds the text embedded into the similarity index: the
// normalized company name and address fields joined with single spaces.
// Returns "" when the record has no usable text.
func CompositeText(rec models.Record) string {
	parts := make([]string, 0, 3)
	for _, field := range []string{models.FieldCompany, models.FieldStreet, models.FieldCity} {
		if v := rec.Get(field); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
