// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"gorm.io/gorm"
)

// Status is the catalog status of a product
type Status string

const (
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusDiscontinued Status = "discontinued"
)

// Pricing holds per-pack prices
type Pricing struct {
	SellingPricePerPack decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"selling_price_per_pack"`
	CostPricePerPack    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cost_price_per_pack"`
}

// Product is a sellable item of one tenant together with its stock
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TenantID  uint           `gorm:"not null;index;uniqueIndex:idx_products_tenant_sku" json:"tenant_id"`
	SKU       string         `gorm:"not null;size:100;uniqueIndex:idx_products_tenant_sku" json:"sku"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Status    Status         `gorm:"not null;size:20;default:'active';index" json:"status"`
	Pricing   Pricing        `gorm:"embedded;embeddedPrefix:price_" json:"pricing"`
	Stock     stock.Record   `gorm:"embedded;embeddedPrefix:stock_" json:"stock"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string { return "products" }

// IsActive reports whether the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// UnitPrice is the selling price of a single unit
func (p *Product) UnitPrice() decimal.Decimal {
	size := p.Stock.UnitsPerPack
	if size < 1 {
		size = 1
	}
	return p.Pricing.SellingPricePerPack.Div(decimal.NewFromInt(int64(size)))
}

// IsValidStatus checks a status value
func IsValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive, StatusDiscontinued:
		return true
	}
	return false
}
