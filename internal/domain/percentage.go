package domain

import (
	"log/slog"
	"math"
)

// ValidatePercentage fails when v is outside [0, 100]. Values strictly between
// 0 and 1 are accepted but logged, since they usually mean a fraction was
// supplied where a percentage was expected.
func ValidatePercentage(v float64, logger *slog.Logger) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return invalidf("value %v is out of range. Must be between 0 and 100", v)
	}
	if v > 0 && v < 1 && logger != nil {
		logger.Warn("percentage value is low, be sure to specify percentages, not fractions", "value", v)
	}
	return nil
}
