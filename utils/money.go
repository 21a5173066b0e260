package utils

import "math"

// Round2 rounds a currency amount to 2 decimal places. All line totals,
// subtotals and totals pass through here so they compare exactly in sums.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}
