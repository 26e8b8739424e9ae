// internal/domain/stock/mutator.go
package stock

import "fmt"

// Mode selects the direction of a mutation
type Mode string

const (
	ModeDecrement Mode = "decrement"
	ModeIncrement Mode = "increment"
)

// MaxQuantity bounds a single mutation so pack arithmetic stays far from int overflow.
// Request validation uses the same limit.
const MaxQuantity = 1_000_000

// Apply moves quantity units into or out of the record according to the policy of its
// unit type. It is a pure state transition; persisting the result is the caller's job
// and must happen inside the caller's transaction.
func Apply(r Record, quantity int, mode Mode) (Record, error) {
	if quantity < 0 {
		return Record{}, fmt.Errorf("quantity must not be negative: %d", quantity)
	}
	if quantity > MaxQuantity {
		return Record{}, fmt.Errorf("quantity %d exceeds the limit of %d", quantity, MaxQuantity)
	}

	switch mode {
	case ModeDecrement:
		if quantity == 0 {
			return r, nil
		}
		if PolicyFor(r.UnitType) == PolicyDivisible {
			return decrementDivisible(r, quantity)
		}
		return decrementWholeUnit(r, quantity)
	case ModeIncrement:
		return increment(r, 0, quantity), nil
	default:
		return Record{}, fmt.Errorf("invalid stock mutation mode: %s", mode)
	}
}

// Restock adds whole packs and loose units and normalizes the result
func Restock(r Record, packs, units int) (Record, error) {
	if packs < 0 || units < 0 {
		return Record{}, fmt.Errorf("restock quantities must not be negative: packs %d, units %d", packs, units)
	}
	if packs > MaxQuantity || units > MaxQuantity {
		return Record{}, fmt.Errorf("restock quantities exceed the limit of %d: packs %d, units %d", MaxQuantity, packs, units)
	}
	return increment(r, packs, units), nil
}

// RemovePacks takes whole unopened packs off the shelf
func RemovePacks(r Record, packs int) (Record, error) {
	if packs < 0 {
		return Record{}, fmt.Errorf("packs must not be negative: %d", packs)
	}
	if packs > r.FullPacks {
		return Record{}, &ShortageError{Available: r.FullPacks, Requested: packs}
	}
	r.FullPacks -= packs
	return r, nil
}

// SetPacks overwrites the pack count after a physical count. Loose units are untouched.
func SetPacks(r Record, packs int) (Record, error) {
	if packs < 0 {
		return Record{}, fmt.Errorf("packs must not be negative: %d", packs)
	}
	if packs > MaxQuantity {
		return Record{}, fmt.Errorf("packs %d exceed the limit of %d", packs, MaxQuantity)
	}
	r.FullPacks = packs
	return r, nil
}
