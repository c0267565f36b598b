// Package material defines the materials master domain model and the
// keyed record store it is persisted through.
// This package has no transport or storage dependencies and can be used
// by any frontend.
package material

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is one purchasable raw material in the master list.
//
// MaterialID is the externally supplied business key: unique, immutable
// once assigned, and the only identity the domain cares about. All text
// fields follow the empty-string-never-null convention.
type Material struct {
	MaterialID       string          `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	Manufacturer     string          `json:"manufacturer"`
	Supplier         string          `json:"supplier"`
	Application      string          `json:"application"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	OrderQuantity    decimal.Decimal `json:"order_quantity"`
	Remarks          string          `json:"remarks"`
	MaterialCategory string          `json:"material_category"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the material.
// decimal.Decimal is immutable, so a field copy is sufficient.
func (m *Material) Clone() *Material {
	c := *m
	return &c
}
