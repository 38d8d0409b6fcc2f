// Package unit converts quantities between units of the same dimension.
//
// Every dimension has a reference unit. Conversions go value → reference →
// target using exact literal factors, and nothing is rounded on the way.
package unit

import (
	"math"

	"github.com/fwojciec/raftspec"
)

// perReference is how many of each unit make one reference unit.
var perReference = map[raftspec.Unit]float64{
	// pressure, reference psi
	raftspec.UnitPSI:   1,
	raftspec.UnitMMWG:  703.0696,
	raftspec.UnitInH2O: 27.68064,
	raftspec.UnitMbar:  68.948,
	raftspec.UnitBar:   1 / 14.5038,

	// force, reference kN
	raftspec.UnitKN:  1,
	raftspec.UnitLbf: 1000 / 4.4482216152605,

	// torque, reference Nm
	raftspec.UnitNm: 1,

	// mass, reference g
	raftspec.UnitGram:     1,
	raftspec.UnitKilogram: 0.001,
}

var dimensions = map[raftspec.Dimension][]raftspec.Unit{
	raftspec.DimensionPressure: {raftspec.UnitPSI, raftspec.UnitMMWG, raftspec.UnitInH2O, raftspec.UnitMbar, raftspec.UnitBar},
	raftspec.DimensionForce:    {raftspec.UnitKN, raftspec.UnitLbf},
	raftspec.DimensionTorque:   {raftspec.UnitNm},
	raftspec.DimensionMass:     {raftspec.UnitGram, raftspec.UnitKilogram},
}

// Units returns the units of a dimension, reference unit first.
func Units(d raftspec.Dimension) []raftspec.Unit {
	return append([]raftspec.Unit(nil), dimensions[d]...)
}

// Reference returns the reference unit of a dimension, or "" if unknown.
func Reference(d raftspec.Dimension) raftspec.Unit {
	units := dimensions[d]
	if len(units) == 0 {
		return ""
	}
	return units[0]
}

// Convert returns q expressed in target. It fails with ECONVERSION when
// either unit is unknown or the units measure different dimensions.
func Convert(q raftspec.Quantity, target raftspec.Unit) (raftspec.Quantity, error) {
	from, ok := perReference[q.Unit]
	if !ok {
		return raftspec.Quantity{}, raftspec.Errorf(raftspec.ECONVERSION, "unknown unit %q", q.Unit)
	}
	to, ok := perReference[target]
	if !ok {
		return raftspec.Quantity{}, raftspec.Errorf(raftspec.ECONVERSION, "unknown unit %q", target)
	}
	if q.Unit.Dimension() != target.Dimension() {
		return raftspec.Quantity{}, raftspec.Errorf(raftspec.ECONVERSION,
			"cannot convert %s (%s) to %s (%s)", q.Unit, q.Unit.Dimension(), target, target.Dimension())
	}
	if q.Unit == target {
		return q, nil
	}
	return raftspec.Quantity{Value: q.Value / from * to, Unit: target}, nil
}

// Canonical returns q in the reference unit of its dimension.
func Canonical(q raftspec.Quantity) (raftspec.Quantity, error) {
	return Convert(q, Reference(q.Unit.Dimension()))
}

// ToAll returns q in every unit of its dimension, including its own.
func ToAll(q raftspec.Quantity) (map[raftspec.Unit]raftspec.Quantity, error) {
	units := dimensions[q.Unit.Dimension()]
	if len(units) == 0 {
		return nil, raftspec.Errorf(raftspec.ECONVERSION, "unknown unit %q", q.Unit)
	}
	all := make(map[raftspec.Unit]raftspec.Quantity, len(units))
	for _, u := range units {
		c, err := Convert(q, u)
		if err != nil {
			return nil, err
		}
		all[u] = c
	}
	return all, nil
}

// epsilon absorbs floating point noise from chained conversions.
const epsilon = 1e-9

// Equal reports whether a and b are the same amount once both are in the
// reference unit. tolerance is relative to the larger magnitude; zero
// compares up to floating point noise. Different dimensions fail with
// ECONVERSION.
func Equal(a, b raftspec.Quantity, tolerance float64) (bool, error) {
	ca, err := Canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := Convert(b, ca.Unit)
	if err != nil {
		return false, err
	}
	scale := math.Max(math.Abs(ca.Value), math.Abs(cb.Value))
	return math.Abs(ca.Value-cb.Value) <= math.Max(tolerance, epsilon)*math.Max(scale, 1), nil
}
