package loader

import (
	"math"
	"strconv"
	"strings"
)

// ParseMeasure casts a staged value to a nullable float. Anything that
// does not parse to a finite number becomes NULL.
func ParseMeasure(value string, stripThousands bool) *float64 {
	value = strings.TrimSpace(value)
	if stripThousands {
		value = strings.ReplaceAll(value, ",", "")
	}
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Dedup keeps the last occurrence of every key. Survivors keep the relative
// order of the positions they were last seen at.
func Dedup[T any](rows []T, key func(T) string) []T {
	last := make(map[string]int, len(rows))
	for i, row := range rows {
		last[key(row)] = i
	}
	out := make([]T, 0, len(last))
	for i, row := range rows {
		if last[key(row)] == i {
			out = append(out, row)
		}
	}
	return out
}
