package stock

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tablets(packs, loose, perPack int) Record {
	return Record{FullPacks: packs, LooseUnits: loose, UnitsPerPack: perPack, UnitType: UnitTablets}
}

func TestPolicyFor(t *testing.T) {
	cases := map[UnitType]Policy{
		UnitTablets:       PolicyDivisible,
		UnitCapsules:      PolicyDivisible,
		UnitGrams:         PolicyDivisible,
		UnitBottles:       PolicyWholeUnit,
		UnitTubes:         PolicyWholeUnit,
		UnitUnits:         PolicyWholeUnit,
		UnitMillilitres:   PolicyWholeUnit,
		UnitPacks:         PolicyWholeUnit,
		UnitType("Drops"): PolicyWholeUnit,
		UnitType(""):      PolicyWholeUnit,
	}
	for unitType, want := range cases {
		assert.Equal(t, want, PolicyFor(unitType), "unit type %q", unitType)
	}
}

func TestTotalUnits(t *testing.T) {
	assert.Equal(t, 23, tablets(2, 3, 10).TotalUnits())
	assert.Equal(t, 0, Record{FullPacks: -5, UnitsPerPack: 10}.TotalUnits())
	assert.Equal(t, 4, Record{FullPacks: 4, UnitsPerPack: 0}.TotalUnits())
}

func TestApply_DivisibleBreaksPack(t *testing.T) {
	got, err := Apply(tablets(2, 3, 10), 5, ModeDecrement)
	require.NoError(t, err)

	assert.Equal(t, 1, got.FullPacks)
	assert.Equal(t, 8, got.LooseUnits)
	assert.Equal(t, 18, got.TotalUnits())
}

func TestApply_DivisibleLooseOnly(t *testing.T) {
	got, err := Apply(tablets(2, 3, 10), 3, ModeDecrement)
	require.NoError(t, err)

	assert.Equal(t, 2, got.FullPacks)
	assert.Equal(t, 0, got.LooseUnits)
}

func TestApply_DivisibleBreaksSeveralPacks(t *testing.T) {
	got, err := Apply(tablets(3, 1, 10), 22, ModeDecrement)
	require.NoError(t, err)

	assert.Equal(t, 0, got.FullPacks)
	assert.Equal(t, 9, got.LooseUnits)
	assert.Equal(t, 9, got.TotalUnits())
}

func TestApply_DivisibleInsufficient(t *testing.T) {
	before := tablets(2, 3, 10)
	_, err := Apply(before, 25, ModeDecrement)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var shortage *ShortageError
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, 23, shortage.Available)
	assert.Equal(t, 25, shortage.Requested)
}

func TestApply_DecrementConservesUnits(t *testing.T) {
	records := []Record{
		tablets(2, 3, 10),
		tablets(0, 7, 10),
		tablets(5, 0, 12),
		tablets(1, 25, 10), // loose may exceed one pack between operations
		{FullPacks: 9, LooseUnits: 2, UnitsPerPack: 1, UnitType: UnitBottles},
		{FullPacks: 4, LooseUnits: 0, UnitsPerPack: 1, UnitType: UnitType("Unknown")},
	}
	for _, r := range records {
		for q := 1; q <= r.TotalUnits(); q++ {
			got, err := Apply(r, q, ModeDecrement)
			require.NoError(t, err, "record %+v quantity %d", r, q)
			assert.Equal(t, r.TotalUnits()-q, got.TotalUnits(), "record %+v quantity %d", r, q)
			assert.GreaterOrEqual(t, got.LooseUnits, 0)
			assert.GreaterOrEqual(t, got.FullPacks, 0)
		}
	}
}

func TestApply_WholeUnitRejectsUpFront(t *testing.T) {
	r := Record{FullPacks: 3, LooseUnits: 1, UnitsPerPack: 1, UnitType: UnitBottles}
	_, err := Apply(r, 5, ModeDecrement)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestApply_WholeUnitConsumesLooseFirst(t *testing.T) {
	r := Record{FullPacks: 3, LooseUnits: 2, UnitsPerPack: 1, UnitType: UnitTubes}
	got, err := Apply(r, 3, ModeDecrement)
	require.NoError(t, err)

	assert.Equal(t, 2, got.FullPacks)
	assert.Equal(t, 0, got.LooseUnits)
}

func TestApply_WholeUnitPackArithmeticWithLargePacks(t *testing.T) {
	// one pack is taken per remaining unit even when a pack holds more than one unit
	r := Record{FullPacks: 4, LooseUnits: 1, UnitsPerPack: 6, UnitType: UnitBottles}
	got, err := Apply(r, 3, ModeDecrement)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FullPacks)
	assert.Equal(t, 0, got.LooseUnits)

	// never driven below zero packs
	_, err = Apply(r, 10, ModeDecrement)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestApply_IncrementNormalizes(t *testing.T) {
	records := []Record{
		tablets(0, 0, 10),
		tablets(1, 25, 10),
		tablets(2, 9, 10),
		{FullPacks: 1, LooseUnits: 0, UnitsPerPack: 1, UnitType: UnitBottles},
	}
	for _, r := range records {
		for q := 0; q <= 30; q++ {
			got, err := Apply(r, q, ModeIncrement)
			require.NoError(t, err)
			assert.Less(t, got.LooseUnits, got.UnitsPerPack, "record %+v quantity %d", r, q)
			assert.Equal(t, r.TotalUnits()+q, got.TotalUnits())
		}
	}
}

func TestApply_RejectsNegativeAndUnknownMode(t *testing.T) {
	_, err := Apply(tablets(1, 0, 10), -1, ModeDecrement)
	assert.Error(t, err)

	_, err = Apply(tablets(1, 0, 10), 1, Mode("sideways"))
	assert.Error(t, err)
}

func TestApply_RejectsQuantitiesAboveLimit(t *testing.T) {
	for _, mode := range []Mode{ModeDecrement, ModeIncrement} {
		_, err := Apply(tablets(2, 3, 10), MaxQuantity+1, mode)
		assert.Error(t, err, mode)

		_, err = Apply(tablets(2, 3, 10), math.MaxInt, mode)
		assert.Error(t, err, mode)
	}

	_, err := Restock(tablets(2, 3, 10), 0, math.MaxInt)
	assert.Error(t, err)
	_, err = SetPacks(tablets(2, 3, 10), math.MaxInt)
	assert.Error(t, err)
}

func TestDecrementDivisible_HugeQuantityIsAShortage(t *testing.T) {
	before := tablets(2, 3, 10)

	got, err := decrementDivisible(before, math.MaxInt)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, Record{}, got)

	var shortage *ShortageError
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, 23, shortage.Available)
	assert.Equal(t, math.MaxInt, shortage.Requested)
}

func TestApply_LargestAllowedDecrementKeepsLooseBelowPackSize(t *testing.T) {
	got, err := Apply(tablets(MaxQuantity, 0, 10), MaxQuantity-1, ModeDecrement)
	require.NoError(t, err)
	assert.Less(t, got.LooseUnits, got.UnitsPerPack)
	assert.Equal(t, 10*MaxQuantity-(MaxQuantity-1), got.TotalUnits())
}

func TestRestock(t *testing.T) {
	got, err := Restock(tablets(1, 8, 10), 2, 15)
	require.NoError(t, err)
	assert.Equal(t, 5, got.FullPacks)
	assert.Equal(t, 3, got.LooseUnits)

	_, err = Restock(tablets(1, 8, 10), -1, 0)
	assert.Error(t, err)
}

func TestRemoveAndSetPacks(t *testing.T) {
	got, err := RemovePacks(tablets(3, 4, 10), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FullPacks)
	assert.Equal(t, 4, got.LooseUnits)

	_, err = RemovePacks(tablets(3, 4, 10), 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err = SetPacks(tablets(3, 4, 10), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got.FullPacks)
	assert.Equal(t, 4, got.LooseUnits)

	_, err = SetPacks(tablets(3, 4, 10), -1)
	assert.Error(t, err)
}

func TestLowStock(t *testing.T) {
	r := tablets(1, 5, 10)
	r.MinStockLevel = 2
	assert.True(t, r.IsLowStock())

	r.FullPacks = 3
	assert.False(t, r.IsLowStock())
	assert.False(t, r.IsOutOfStock())
	assert.True(t, Record{UnitsPerPack: 10}.IsOutOfStock())
}
