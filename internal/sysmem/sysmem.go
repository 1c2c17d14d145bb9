// Package sysmem reports physical memory and derives the read-buffer budget
// from it.
package sysmem

import "log"

// MinBudget is used when total memory cannot be determined.
const MinBudget = 64 << 20

// Total returns physical memory in bytes, or 0 when unknown.
func Total() int64 {
	return totalImpl()
}

// Budget returns fraction of total memory in bytes, never less than
// MinBudget. Non-positive or oversized fractions fall back to 0.1.
func Budget(fraction float64) int64 {
	if fraction <= 0 || fraction > 1 {
		fraction = 0.1
	}
	total := Total()
	if total <= 0 {
		log.Printf("[Memory] total memory unknown, using %d byte budget", MinBudget)
		return MinBudget
	}
	return max(int64(float64(total)*fraction), MinBudget)
}
