package utils

import "math"

// Epsilon is the tolerance used throughout the engine for quantity and cost
// comparisons. Quantities and costs within Epsilon of zero are clamped to
// exactly zero rather than rejected.
const Epsilon = 1e-4

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// NearZero reports whether v is within Epsilon of zero.
func NearZero(v float64) bool {
	return math.Abs(v) < Epsilon
}
