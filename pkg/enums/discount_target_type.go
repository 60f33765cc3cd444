package enums

import "fmt"

// DiscountTargetType resolves which items a fixed or percentage
// discount applies to.
type DiscountTargetType string

const (
	DiscountTargetSource DiscountTargetType = "source"
	DiscountTargetTarget DiscountTargetType = "target"
	DiscountTargetCart   DiscountTargetType = "cart"
)

var validDiscountTargetTypes = []DiscountTargetType{
	DiscountTargetSource,
	DiscountTargetTarget,
	DiscountTargetCart,
}

// IsValid reports whether the value is a known DiscountTargetType.
func (d DiscountTargetType) IsValid() bool {
	for _, candidate := range validDiscountTargetTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountTargetType converts the raw string to DiscountTargetType.
func ParseDiscountTargetType(value string) (DiscountTargetType, error) {
	for _, candidate := range validDiscountTargetTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount target type %q", value)
}
