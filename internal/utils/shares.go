package utils

import "math"

// MaxShares calculates the maximum number of whole shares that can be bought
// with the given balance at the given price.
func MaxShares(balance float64, price float64) int {
	// Handle edge cases
	if price <= 0 || balance <= 0 {
		return 0
	}

	return int(math.Floor(balance / price))
}

// SharesForPercentage calculates the number of whole shares purchasable with
// the given percentage of the balance.
func SharesForPercentage(balance float64, price float64, percentage float64) int {
	return MaxShares(balance*percentage, price)
}

// RoundToDecimalPrecision rounds the value down to the specified decimal precision.
func RoundToDecimalPrecision(value float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(value*multiplier) / multiplier
}
