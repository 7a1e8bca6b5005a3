// Package models defines the canonical sales record produced by the
// ingestion pipeline and the intermediate raw-record form that vendor
// extraction emits before normalization.
package models

import (
	"github.com/shopspring/decimal"
)

// Canonical field names used by vendor profile field rules. Extraction keys
// raw values by these names; the normalizer maps them onto SalesRecord.
const (
	FieldReseller       = "reseller"
	FieldEAN            = "product_ean"
	FieldMonth          = "month"
	FieldYear           = "year"
	FieldQuantity       = "quantity"
	FieldSalesLC        = "sales_lc"
	FieldCurrency       = "currency"
	FieldFunctionalName = "functional_name"
)

// SalesRecord is the normalized, partner-independent sales line.
// ProductEAN, SalesEUR and FunctionalName are optional; Month and Year are
// always validated before a record is accepted. Quantity is nil and SalesLC
// empty when the source cell was blank and the profile does not coerce
// blanks to zero.
type SalesRecord struct {
	Reseller       string           `csv:"reseller" db:"reseller"`
	ProductEAN     string           `csv:"product_ean" db:"product_ean"`
	Month          int              `csv:"month" db:"month"`
	Year           int              `csv:"year" db:"year"`
	Quantity       *decimal.Decimal `csv:"quantity" db:"quantity"`
	SalesLC        string           `csv:"sales_lc" db:"sales_lc"`
	SalesEUR       *decimal.Decimal `csv:"sales_eur,omitempty" db:"sales_eur"`
	Currency       string           `csv:"currency" db:"currency"`
	FunctionalName string           `csv:"functional_name" db:"functional_name"`
	UploadID       string           `csv:"-" db:"upload_id"`
}

// Provenance identifies where a raw record came from, for diagnostics.
type Provenance struct {
	Filename string
	Sheet    string
	RowIndex int // zero-based index into the source grid
}

// RawRecord is one row's worth of unvalidated field values keyed by
// canonical field name, plus provenance.
type RawRecord struct {
	Fields     map[string]string
	Provenance Provenance
}

// Get returns the raw value for a canonical field name, or "" if absent.
func (r RawRecord) Get(field string) string {
	return r.Fields[field]
}
