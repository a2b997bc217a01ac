package exporter

import (
	"strconv"
)

// formatFloat formats a percentage or area with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatVolume formats a curve volume. Curves are deduplicated on 4
// decimals, so that is what the table carries.
func formatVolume(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// formatInt formats an integer value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatOptionalInt leaves the cell blank for a nil id.
func formatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
