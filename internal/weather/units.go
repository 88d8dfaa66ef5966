package weather

import "math"

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// RoundWhole rounds half away from zero and keeps the float64 shape used
// throughout the nullable fields.
func RoundWhole(v float64) float64 {
	return math.Round(v)
}

// HPaToKPa converts hectopascals to kilopascals at one-decimal precision.
func HPaToKPa(hpa float64) float64 {
	return Round1(hpa / 10)
}

// MetresToKm converts metres to kilometres.
func MetresToKm(m float64) float64 {
	return m / 1000
}

// AverageValues fuses two nullable readings with the given weight on the
// first. A missing side yields the other side unchanged; both missing yields
// nil; both present yields the weighted mean at one decimal place.
func AverageValues(a, b *float64, weight float64) *float64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return b
	case b == nil:
		return a
	}
	v := Round1(*a*weight + *b*(1-weight))
	return &v
}

// Float is a convenience for building nullable numeric fields.
func Float(v float64) *float64 { return &v }

// String is a convenience for building nullable text fields.
func String(v string) *string { return &v }
