package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CapacityBand selects sites with Min <= current_capacity < Max.
type CapacityBand struct {
	Min int
	Max int
}

// ParseCapacityBand parses a "min-max" key. Each end is read as a number and
// truncated toward zero, so "0-1e3" and "0.5-1000.9" both give [0, 1000).
func ParseCapacityBand(s string) (CapacityBand, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return CapacityBand{}, invalidf("capacity band %q must have the form \"min-max\"", s)
	}
	var ends [2]int
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return CapacityBand{}, invalidf("capacity band %q: %q is not a number", s, p)
		}
		ends[i] = int(v)
	}
	return CapacityBand{Min: ends[0], Max: ends[1]}, nil
}

// Contains reports whether capacity falls in the band. NaN is never contained.
func (b CapacityBand) Contains(capacity float64) bool {
	return float64(b.Min) <= capacity && capacity < float64(b.Max)
}

func (b CapacityBand) String() string {
	return fmt.Sprintf("%d-%d", b.Min, b.Max)
}
