// internal/domain/stock/policy.go
package stock

import (
	"errors"
	"fmt"
)

// Policy dictates how a quantity is carved out of packs and loose units
type Policy string

const (
	PolicyDivisible Policy = "divisible"
	PolicyWholeUnit Policy = "whole_unit"
)

// ErrInsufficientStock is matched by every ShortageError
var ErrInsufficientStock = errors.New("insufficient stock")

// ShortageError reports how far a decrement fell short
type ShortageError struct {
	Available int
	Requested int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

// Is lets errors.Is match ErrInsufficientStock
func (e *ShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PolicyFor classifies a unit type. Unrecognized unit types are whole-unit.
func PolicyFor(unitType UnitType) Policy {
	switch unitType {
	case UnitTablets, UnitCapsules, UnitGrams:
		return PolicyDivisible
	default:
		return PolicyWholeUnit
	}
}

// decrementDivisible consumes loose units first, then breaks as many packs as the
// remainder needs; leftover units of the broken packs become loose units.
func decrementDivisible(r Record, quantity int) (Record, error) {
	available := r.TotalUnits()

	used := min(quantity, r.LooseUnits)
	r.LooseUnits -= used
	remainder := quantity - used
	if remainder == 0 {
		return r, nil
	}

	size := r.packSize()
	packsToBreak := remainder / size
	if remainder%size != 0 {
		packsToBreak++
	}
	if packsToBreak > r.FullPacks {
		return Record{}, &ShortageError{Available: available, Requested: quantity}
	}

	r.FullPacks -= packsToBreak
	r.LooseUnits += packsToBreak*size - remainder
	return r, nil
}

// decrementWholeUnit consumes loose units first, then takes the remainder off the pack
// count one-for-one. The one-for-one step is only dimensionally exact when
// UnitsPerPack is 1; it is kept as is because existing reports depend on it.
func decrementWholeUnit(r Record, quantity int) (Record, error) {
	available := r.TotalUnits()
	if quantity > available {
		return Record{}, &ShortageError{Available: available, Requested: quantity}
	}

	used := min(quantity, r.LooseUnits)
	r.LooseUnits -= used
	remainder := quantity - used

	// negative pack counts are never persisted
	if remainder > r.FullPacks {
		return Record{}, &ShortageError{Available: available, Requested: quantity}
	}
	r.FullPacks -= remainder
	return r, nil
}

// increment adds packs and units, then folds every complete pack worth of loose units
// into FullPacks.
func increment(r Record, packs, units int) Record {
	r.FullPacks += packs
	r.LooseUnits += units

	size := r.packSize()
	r.FullPacks += r.LooseUnits / size
	r.LooseUnits %= size
	return r
}
