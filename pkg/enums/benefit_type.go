package enums

import "fmt"

// BenefitType is the discriminator for a rule's benefit payload.
type BenefitType string

const (
	BenefitFreeItems          BenefitType = "free_items"
	BenefitFixedDiscount      BenefitType = "fixed_discount"
	BenefitPercentageDiscount BenefitType = "percentage_discount"
	BenefitBundlePrice        BenefitType = "bundle_price"
)

var validBenefitTypes = []BenefitType{
	BenefitFreeItems,
	BenefitFixedDiscount,
	BenefitPercentageDiscount,
	BenefitBundlePrice,
}

// IsValid reports whether the value matches the canonical benefit_type enum.
func (b BenefitType) IsValid() bool {
	for _, candidate := range validBenefitTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBenefitType converts the raw string to BenefitType.
func ParseBenefitType(value string) (BenefitType, error) {
	for _, candidate := range validBenefitTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid benefit type %q", value)
}
