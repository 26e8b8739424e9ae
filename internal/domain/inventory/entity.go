// internal/domain/inventory/entity.go
package inventory

import (
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
)

// AdjustMode represents the kind of manual stock movement
type AdjustMode string

const (
	ModeAddPacks    AdjustMode = "add_packs"    // Delivery of sealed packs
	ModeAddUnits    AdjustMode = "add_units"    // Loose units returned to the shelf
	ModeRemovePacks AdjustMode = "remove_packs" // Damaged, expired or returned to supplier
	ModeSetPacks    AdjustMode = "set_packs"    // Physical recount
)

// MovementReason represents why stock was moved by hand
type MovementReason string

const (
	ReasonPurchase   MovementReason = "purchase"
	ReasonReturn     MovementReason = "return"
	ReasonDamage     MovementReason = "damage"
	ReasonExpiry     MovementReason = "expiry"
	ReasonAdjustment MovementReason = "adjustment"
	ReasonRecount    MovementReason = "recount"
)

// LowStockItem is one line of the low stock report
type LowStockItem struct {
	ProductID     uint           `json:"product_id"`
	SKU           string         `json:"sku"`
	Name          string         `json:"name"`
	UnitType      stock.UnitType `json:"unit_type"`
	TotalUnits    int            `json:"total_units"`
	MinStockLevel int            `json:"min_stock_level"`
	ReorderAt     int            `json:"reorder_at_units"`
	OutOfStock    bool           `json:"out_of_stock"`
}

func newLowStockItem(p product.Product) LowStockItem {
	return LowStockItem{
		ProductID:     p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		UnitType:      p.Stock.UnitType,
		TotalUnits:    p.Stock.TotalUnits(),
		MinStockLevel: p.Stock.MinStockLevel,
		ReorderAt:     p.Stock.MinStockLevel * max(p.Stock.UnitsPerPack, 1),
		OutOfStock:    p.Stock.IsOutOfStock(),
	}
}
