package enums

import "slices"

// DiscountKind scopes what a discount attaches to.
type DiscountKind string

const (
	DiscountKindProduct DiscountKind = "PT"
	DiscountKindSet     DiscountKind = "ST"
	DiscountKindCart    DiscountKind = "CT"
)

var validDiscountKinds = []DiscountKind{
	DiscountKindProduct,
	DiscountKindSet,
	DiscountKindCart,
}

// IsValid reports whether the value is a known discount kind.
func (k DiscountKind) IsValid() bool { return slices.Contains(validDiscountKinds, k) }

// ParseDiscountKind converts raw input into DiscountKind.
func ParseDiscountKind(value string) (DiscountKind, error) {
	return parse(validDiscountKinds, value, "discount kind")
}

// DiscountMethod selects how the discount value changes a price.
type DiscountMethod string

const (
	// DiscountMethodPercent subtracts value percent of the price.
	DiscountMethodPercent DiscountMethod = "PT"
	// DiscountMethodAmount subtracts value from the price, floored at 1.
	DiscountMethodAmount DiscountMethod = "SM"
	// DiscountMethodFixed replaces the price with value.
	DiscountMethodFixed DiscountMethod = "FD"
)

var validDiscountMethods = []DiscountMethod{
	DiscountMethodPercent,
	DiscountMethodAmount,
	DiscountMethodFixed,
}

// IsValid reports whether the value is a known discount method.
func (m DiscountMethod) IsValid() bool { return slices.Contains(validDiscountMethods, m) }

// ParseDiscountMethod converts raw input into DiscountMethod.
func ParseDiscountMethod(value string) (DiscountMethod, error) {
	return parse(validDiscountMethods, value, "discount method")
}

// ResolutionTier names the step of cart resolution that produced a price.
type ResolutionTier string

const (
	ResolutionTierNone        ResolutionTier = "none"
	ResolutionTierCart        ResolutionTier = "cart"
	ResolutionTierSet         ResolutionTier = "set"
	ResolutionTierProductList ResolutionTier = "product_list"
	ResolutionTierPerItem     ResolutionTier = "per_item"
)
