// internal/domain/stock/entity.go
package stock

// UnitType is the dispensing unit of a product
type UnitType string

const (
	UnitTablets     UnitType = "Tablets"
	UnitCapsules    UnitType = "Capsules"
	UnitGrams       UnitType = "Grams"
	UnitBottles     UnitType = "Bottles"
	UnitTubes       UnitType = "Tubes"
	UnitUnits       UnitType = "Units"
	UnitMillilitres UnitType = "Millilitres"
	UnitPacks       UnitType = "Packs"
	UnitSachets     UnitType = "Sachets"
	UnitVials       UnitType = "Vials"
)

// Record is the persisted quantity state of one product.
// It is embedded in the product row with the "stock_" column prefix.
type Record struct {
	FullPacks     int      `gorm:"not null;default:0" json:"full_packs"`
	LooseUnits    int      `gorm:"not null;default:0" json:"loose_units"`
	UnitsPerPack  int      `gorm:"not null;default:1" json:"units_per_pack"`
	MinStockLevel int      `gorm:"not null;default:0" json:"min_stock_level"`
	MaxStockLevel int      `gorm:"not null;default:0" json:"max_stock_level"`
	UnitType      UnitType `gorm:"not null;size:30;default:'Units'" json:"unit_type"`
}

// Snapshot is a point-in-time copy of a record's quantities
type Snapshot struct {
	FullPacks    int `json:"full_packs"`
	LooseUnits   int `json:"loose_units"`
	UnitsPerPack int `json:"units_per_pack"`
	TotalUnits   int `json:"total_units"`
}

// TotalUnits returns the available stock in units. It is always derived, never stored.
func (r Record) TotalUnits() int {
	total := r.FullPacks*r.packSize() + r.LooseUnits
	if total < 0 {
		return 0
	}
	return total
}

// Snapshot captures the current quantities
func (r Record) Snapshot() Snapshot {
	return Snapshot{
		FullPacks:    r.FullPacks,
		LooseUnits:   r.LooseUnits,
		UnitsPerPack: r.UnitsPerPack,
		TotalUnits:   r.TotalUnits(),
	}
}

// IsLowStock reports whether on-hand units are at or below the reorder threshold (in packs)
func (r Record) IsLowStock() bool {
	return r.TotalUnits() <= r.MinStockLevel*r.packSize()
}

// IsOutOfStock checks if nothing is left to sell
func (r Record) IsOutOfStock() bool {
	return r.TotalUnits() == 0
}

// packSize guards against rows written before units_per_pack had a default
func (r Record) packSize() int {
	if r.UnitsPerPack < 1 {
		return 1
	}
	return r.UnitsPerPack
}
