// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Output truncation and flag validation helpers
package commands

import (
	"fmt"
)

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

// validateUnit returns error if f is outside [0, 1]
func validateUnit(f float64, name string) error {
	if f < 0 || f > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", name, f)
	}
	return nil
}
