package raftspec

import (
	"math"
	"strconv"
	"strings"
)

// Unit is a physical unit a quantity can be expressed in.
type Unit string

// Supported units.
const (
	UnitPSI      Unit = "psi"
	UnitMMWG     Unit = "mmWG"
	UnitInH2O    Unit = "inH2O"
	UnitMbar     Unit = "mbar"
	UnitBar      Unit = "bar"
	UnitKN       Unit = "kN"
	UnitLbf      Unit = "lbf"
	UnitNm       Unit = "Nm"
	UnitGram     Unit = "g"
	UnitKilogram Unit = "kg"
)

// Dimension is the physical quantity a unit measures. Quantities of
// different dimensions are never compared or converted into each other.
type Dimension string

// Supported dimensions.
const (
	DimensionPressure Dimension = "pressure"
	DimensionForce    Dimension = "force"
	DimensionTorque   Dimension = "torque"
	DimensionMass     Dimension = "mass"
)

// Dimension returns the dimension of u, or "" for an unknown unit.
func (u Unit) Dimension() Dimension {
	switch u {
	case UnitPSI, UnitMMWG, UnitInH2O, UnitMbar, UnitBar:
		return DimensionPressure
	case UnitKN, UnitLbf:
		return DimensionForce
	case UnitNm:
		return DimensionTorque
	case UnitGram, UnitKilogram:
		return DimensionMass
	}
	return ""
}

// unitAliases maps the spellings found in manuals and certificates,
// lowercased and stripped of spaces and dots, to units.
var unitAliases = map[string]Unit{
	"psi":    UnitPSI,
	"psig":   UnitPSI,
	"mmwg":   UnitMMWG,
	"mmh2o":  UnitMMWG,
	"mmwc":   UnitMMWG,
	"inh2o":  UnitInH2O,
	"inwg":   UnitInH2O,
	"inwc":   UnitInH2O,
	"mbar":   UnitMbar,
	"mb":     UnitMbar,
	"hpa":    UnitMbar,
	"bar":    UnitBar,
	"kn":     UnitKN,
	"lbf":    UnitLbf,
	"lbsf":   UnitLbf,
	"lb":     UnitLbf,
	"lbs":    UnitLbf,
	"nm":     UnitNm,
	"n-m":    UnitNm,
	"n·m":    UnitNm,
	"g":      UnitGram,
	"gr":     UnitGram,
	"grs":    UnitGram,
	"gram":   UnitGram,
	"grams":  UnitGram,
	"kg":     UnitKilogram,
	"kgs":    UnitKilogram,
	"kilo":   UnitKilogram,
	"kilos":  UnitKilogram,
}

// ParseUnit resolves a unit spelling such as "PSI", "mm W.G.", "in H2O",
// "hPa", "kN" or "N.m". The second return value is false when the spelling
// is not recognized.
func ParseUnit(s string) (Unit, bool) {
	key := strings.ToLower(s)
	key = strings.NewReplacer(" ", "", ".", "", "\t", "").Replace(key)
	u, ok := unitAliases[key]
	return u, ok
}

// Quantity is a value tagged with its unit.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// String returns the quantity formatted as "<value> <unit>".
func (q Quantity) String() string {
	return strconv.FormatFloat(q.Value, 'f', -1, 64) + " " + string(q.Unit)
}

// Round returns q with its value rounded to the given number of decimal
// places. Rounding is for output only; conversions keep full precision.
func (q Quantity) Round(places int) Quantity {
	p := math.Pow10(places)
	return Quantity{Value: math.Round(q.Value*p) / p, Unit: q.Unit}
}
