// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package astramutil

import (
	"errors"
	"math"
	"strconv"
)

// BaseUnitsPerASRM is the number of base units in one ASRM
// (1 ASRM = 10^18 base units).
const BaseUnitsPerASRM = 1e18

// AmountUnit describes a decadic multiple used when formatting an Amount.
type AmountUnit int

// Recognized units.
const (
	AmountASRM      AmountUnit = 0
	AmountMilliASRM AmountUnit = -3
	AmountBaseUnit  AmountUnit = -18
)

// String returns the SI-style label for the unit.
func (u AmountUnit) String() string {
	switch u {
	case AmountASRM:
		return "ASRM"
	case AmountMilliASRM:
		return "mASRM"
	case AmountBaseUnit:
		return "base"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " ASRM"
	}
}

// Amount represents a quantity of base units, the integer denomination
// TxOutput.value and UtxoEntry.value are carried in. A single Amount is
// 1e-18 ASRM.
type Amount uint64

// ErrInvalidASRM is returned by NewAmount when f is NaN, infinite, or
// negative.
var ErrInvalidASRM = errors.New("invalid ASRM amount")

// NewAmount converts a floating-point ASRM quantity to an Amount of base
// units, rounding to the nearest unit.
func NewAmount(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, ErrInvalidASRM
	}
	return Amount(f*BaseUnitsPerASRM + 0.5), nil
}

// ToUnit converts a to a floating-point value in the given unit.
func (a Amount) ToUnit(u AmountUnit) float64 {
	return float64(a) / math.Pow10(int(u)+18)
}

// ToASRM is equivalent to ToUnit(AmountASRM).
func (a Amount) ToASRM() float64 {
	return a.ToUnit(AmountASRM)
}

// String formats a as whole ASRM with fixed precision.
func (a Amount) String() string {
	return strconv.FormatFloat(a.ToASRM(), 'f', 18, 64) + " ASRM"
}
