package domain

import "strings"

// KelvinOffset is the difference between the Kelvin and Celsius scales.
const KelvinOffset = 273.15

// CelsiusUnits is the unit written to converted variables.
const CelsiusUnits = "C"

var kelvinUnits = map[string]bool{"k": true, "kelvin": true, "degk": true, "deg_k": true}

// UnitNormalizer converts absolute temperatures to Celsius.
//
// By default any unit string containing the letter "k" counts as Kelvin,
// which also catches "km" and "kg". Strict restricts detection to the
// spellings k, kelvin, degK and deg_K.
type UnitNormalizer struct {
	Strict bool
}

// IsKelvin reports whether units names the Kelvin scale.
func (n UnitNormalizer) IsKelvin(units string) bool {
	u := strings.ToLower(strings.TrimSpace(units))
	if u == "" {
		return false
	}
	if n.Strict {
		return kelvinUnits[u]
	}
	return strings.Contains(u, "k")
}

// Normalize returns the converted units and a new value slice when units is
// Kelvin. Otherwise it returns its inputs unchanged and false.
func (n UnitNormalizer) Normalize(units string, values []float64) (string, []float64, bool) {
	if !n.IsKelvin(units) {
		return units, values, false
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - KelvinOffset
	}
	return CelsiusUnits, out, true
}

// NormalizeUnits applies the default heuristic normalizer.
func NormalizeUnits(units string, values []float64) (string, []float64, bool) {
	return UnitNormalizer{}.Normalize(units, values)
}
