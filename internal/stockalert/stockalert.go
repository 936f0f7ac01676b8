package stockalert

import "fmt"

// Threshold is the stock level below which a warning is emitted.
const Threshold = 5

// Check returns a human-readable low-stock warning for the product when the
// post-decrement stock falls below the threshold, or ok=false otherwise.
func Check(productName string, resultingStock int) (string, bool) {
	if resultingStock >= Threshold {
		return "", false
	}
	return fmt.Sprintf("%s is low in stock (%d left)", productName, resultingStock), true
}
