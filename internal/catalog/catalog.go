// Package catalog resolves canonical product identifiers (EANs) from the
// secondary identifiers partners put in their exports. Used only by
// lookup-type field rules.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when the catalog has no mapping for an identifier.
var ErrNotFound = errors.New("product not found in catalog")

// MySQLCatalog resolves EANs from the product_catalog table.
type MySQLCatalog struct {
	db *sqlx.DB
}

// NewMySQLCatalog wraps an existing connection pool.
func NewMySQLCatalog(db *sqlx.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

// ResolveEAN looks up the EAN for a vendor's secondary identifier.
func (c *MySQLCatalog) ResolveEAN(ctx context.Context, secondaryID, vendorCode string) (string, error) {
	var ean string
	err := c.db.GetContext(ctx, &ean,
		`SELECT ean FROM product_catalog WHERE secondary_id = ? AND vendor_code = ?`,
		secondaryID, vendorCode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving EAN for %s/%s: %w", vendorCode, secondaryID, err)
	}
	return ean, nil
}

// MockCatalog is an in-memory catalog for tests, keyed by
// "vendorCode|secondaryID" (case-insensitive identifier).
type MockCatalog struct {
	mu       sync.Mutex
	Mappings map[string]string
	Calls    int
}

// Add registers a mapping.
func (m *MockCatalog) Add(vendorCode, secondaryID, ean string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Mappings == nil {
		m.Mappings = make(map[string]string)
	}
	m.Mappings[key(vendorCode, secondaryID)] = ean
}

// ResolveEAN returns the registered mapping or ErrNotFound.
func (m *MockCatalog) ResolveEAN(ctx context.Context, secondaryID, vendorCode string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	ean, ok := m.Mappings[key(vendorCode, secondaryID)]
	if !ok {
		return "", ErrNotFound
	}
	return ean, nil
}

func key(vendorCode, secondaryID string) string {
	return vendorCode + "|" + strings.ToLower(secondaryID)
}
