package enums

import "fmt"

// FreeItemSelection orders the eligible pool when a free_items rule
// picks which items go free.
type FreeItemSelection string

const (
	FreeItemCheapest       FreeItemSelection = "cheapest"
	FreeItemMostExpensive  FreeItemSelection = "most_expensive"
	FreeItemCustomerChoice FreeItemSelection = "customer_choice"
)

var validFreeItemSelections = []FreeItemSelection{
	FreeItemCheapest,
	FreeItemMostExpensive,
	FreeItemCustomerChoice,
}

// IsValid reports whether the value is a known FreeItemSelection.
func (f FreeItemSelection) IsValid() bool {
	for _, candidate := range validFreeItemSelections {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFreeItemSelection converts the raw string to FreeItemSelection.
func ParseFreeItemSelection(value string) (FreeItemSelection, error) {
	for _, candidate := range validFreeItemSelections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid free item selection %q", value)
}
