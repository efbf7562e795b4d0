package domain

import "math"

// Round2 rounds to 2 decimal places (currency amounts).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to 1 decimal place (scores and rates).
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round3 rounds to 3 decimal places (normalized ratios).
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
