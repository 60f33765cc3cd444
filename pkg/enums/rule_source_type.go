package enums

import "fmt"

// RuleSourceType decides which cart items qualify a coupon rule.
type RuleSourceType string

const (
	RuleSourceCategory           RuleSourceType = "category"
	RuleSourceNewArrival         RuleSourceType = "new_arrival"
	RuleSourceCategoryNewArrival RuleSourceType = "category_new_arrival"
	RuleSourceAny                RuleSourceType = "any"
)

var validRuleSourceTypes = []RuleSourceType{
	RuleSourceCategory,
	RuleSourceNewArrival,
	RuleSourceCategoryNewArrival,
	RuleSourceAny,
}

// IsValid reports whether the value matches the canonical source_type enum.
func (r RuleSourceType) IsValid() bool {
	for _, candidate := range validRuleSourceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRuleSourceType converts the raw string to RuleSourceType.
func ParseRuleSourceType(value string) (RuleSourceType, error) {
	for _, candidate := range validRuleSourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule source type %q", value)
}
