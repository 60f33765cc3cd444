package enums

import "fmt"

// NewArrivalFilter is a three-way predicate on a product's new-arrival
// flag. It replaces the nullable boolean the rule tables store, so
// "false" and "don't care" stay distinct in code.
type NewArrivalFilter string

const (
	NewArrivalAny      NewArrivalFilter = "any"
	NewArrivalRequired NewArrivalFilter = "required"
	NewArrivalExcluded NewArrivalFilter = "excluded"
)

var validNewArrivalFilters = []NewArrivalFilter{
	NewArrivalAny,
	NewArrivalRequired,
	NewArrivalExcluded,
}

// NewArrivalFilterFromNullableBool maps a stored nullable boolean onto
// the filter: nil means don't care.
func NewArrivalFilterFromNullableBool(value *bool) NewArrivalFilter {
	switch {
	case value == nil:
		return NewArrivalAny
	case *value:
		return NewArrivalRequired
	default:
		return NewArrivalExcluded
	}
}

// Matches reports whether a product's new-arrival flag satisfies the filter.
func (n NewArrivalFilter) Matches(newArrival bool) bool {
	switch n {
	case NewArrivalRequired:
		return newArrival
	case NewArrivalExcluded:
		return !newArrival
	default:
		return true
	}
}

// IsValid reports whether the value is a known NewArrivalFilter.
func (n NewArrivalFilter) IsValid() bool {
	for _, candidate := range validNewArrivalFilters {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNewArrivalFilter converts the raw string to NewArrivalFilter.
func ParseNewArrivalFilter(value string) (NewArrivalFilter, error) {
	for _, candidate := range validNewArrivalFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid new arrival filter %q", value)
}
