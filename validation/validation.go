package validation

import (
	"slices"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// Percent checks a percentage rate (tax, discount) against [0,100].
func Percent(field string, val float64, v Violations) {
	RangeFloat(field, val, 0, 100, v)
}

func OneOf(field, value string, allowed []string, v Violations) {
	if !slices.Contains(allowed, value) {
		v[field] = "invalid_value"
	}
}
