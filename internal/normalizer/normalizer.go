// Package normalizer coerces raw extracted records into canonical sales
// records. Rows that fail validation are rejected with a recorded cause,
// never defaulted and never silently dropped.
package normalizer

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"sellout-ingest/internal/models"
	"sellout-ingest/internal/numeric"
	"sellout-ingest/internal/profile"
)

// Normalizer validates and converts raw records for one vendor profile.
// It is stateless and safe for concurrent use across chunks.
type Normalizer struct {
	profile *profile.Profile
}

// New creates a Normalizer bound to a read-only profile.
func New(p *profile.Profile) *Normalizer {
	return &Normalizer{profile: p}
}

// Normalize converts one raw record. On success the rejected return is nil;
// on failure the record return is nil and the rejection carries the cause
// and row provenance.
func (n *Normalizer) Normalize(raw models.RawRecord) (*models.SalesRecord, *models.RejectedRow) {
	reject := func(cause models.RejectionCause, field, value string) (*models.SalesRecord, *models.RejectedRow) {
		return nil, &models.RejectedRow{
			Cause:      cause,
			Field:      field,
			Value:      value,
			Provenance: raw.Provenance,
		}
	}

	rec := models.SalesRecord{
		Reseller:       strings.TrimSpace(raw.Get(models.FieldReseller)),
		ProductEAN:     strings.TrimSpace(raw.Get(models.FieldEAN)),
		Currency:       strings.ToUpper(strings.TrimSpace(raw.Get(models.FieldCurrency))),
		FunctionalName: strings.TrimSpace(raw.Get(models.FieldFunctionalName)),
	}

	if rec.Reseller == "" {
		return reject(models.CauseMissingRequiredField, models.FieldReseller, "")
	}
	for _, field := range n.profile.RequiredFields {
		if strings.TrimSpace(raw.Get(field)) == "" {
			return reject(models.CauseMissingRequiredField, field, "")
		}
	}

	monthRaw := strings.TrimSpace(raw.Get(models.FieldMonth))
	month, err := parseIntLoose(monthRaw)
	if err != nil {
		return reject(models.CauseInvalidMonth, models.FieldMonth, monthRaw)
	}
	if month < 1 || month > 12 {
		return reject(models.CauseInvalidMonth, models.FieldMonth, monthRaw)
	}
	rec.Month = month

	yearRaw := strings.TrimSpace(raw.Get(models.FieldYear))
	year, err := parseIntLoose(yearRaw)
	if err != nil {
		return reject(models.CauseInvalidYear, models.FieldYear, yearRaw)
	}
	if year < 2000 {
		return reject(models.CauseInvalidYear, models.FieldYear, yearRaw)
	}
	rec.Year = year

	qty, ok := n.parseNumeric(raw.Get(models.FieldQuantity), models.FieldQuantity)
	if !ok {
		return reject(models.CauseUnparseableNumber, models.FieldQuantity, raw.Get(models.FieldQuantity))
	}
	rec.Quantity = qty

	sales, ok := n.parseNumeric(raw.Get(models.FieldSalesLC), models.FieldSalesLC)
	if !ok {
		return reject(models.CauseUnparseableNumber, models.FieldSalesLC, raw.Get(models.FieldSalesLC))
	}
	if sales != nil {
		rec.SalesLC = sales.StringFixed(2)
	}

	// sales_eur stays nil: currency conversion is a downstream enrichment.
	return &rec, nil
}

// parseNumeric cleans and parses a numeric cell. Blank cells coerce to zero
// when the profile marks the field zero-on-blank, otherwise to null (nil).
func (n *Normalizer) parseNumeric(rawValue, field string) (*decimal.Decimal, bool) {
	if strings.TrimSpace(rawValue) == "" {
		if n.profile.ZeroOnBlankField(field) {
			zero := decimal.Zero
			return &zero, true
		}
		return nil, true
	}
	d, err := numeric.Parse(rawValue)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// parseIntLoose accepts integers that arrive as "3", "03" or "3.0".
func parseIntLoose(s string) (int, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	d, err := numeric.Parse(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, strconv.ErrSyntax
	}
	return int(d.IntPart()), nil
}
