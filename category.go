package goOTP

import (
	"strings"
	"time"

	"github.com/MrEthical07/goOTP/internal/flows"
)

// Category classifies the use case a code was issued for. It selects the
// code length and TTL, and may be asserted at verification time.
type Category uint8

const (
	CategoryStandard Category = iota
	CategoryFarmingOperation
	CategoryBuyingOperation
	CategoryAnalysisOperation
	CategoryGovernmentOperation
	CategoryAdminOperation
	CategorySensitiveOperation
	categoryCount
)

var categoryNames = [categoryCount]string{
	CategoryStandard:            "STANDARD",
	CategoryFarmingOperation:    "FARMING_OPERATION",
	CategoryBuyingOperation:     "BUYING_OPERATION",
	CategoryAnalysisOperation:   "ANALYSIS_OPERATION",
	CategoryGovernmentOperation: "GOVERNMENT_OPERATION",
	CategoryAdminOperation:      "ADMIN_OPERATION",
	CategorySensitiveOperation:  "SENSITIVE_OPERATION",
}

var categoryDisplayNames = [categoryCount]string{
	CategoryStandard:            "Standard Login",
	CategoryFarmingOperation:    "Farming Operation",
	CategoryBuyingOperation:     "Buying Operation",
	CategoryAnalysisOperation:   "Analysis Operation",
	CategoryGovernmentOperation: "Government Operation",
	CategoryAdminOperation:      "Administrative Operation",
	CategorySensitiveOperation:  "Sensitive Operation",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		out = append(out, c)
	}
	return out
}

func (c Category) Valid() bool {
	return c < categoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return "UNKNOWN"
	}
	return categoryNames[c]
}

// DisplayName returns the human-readable label shown in delivery templates.
func (c Category) DisplayName() string {
	if !c.Valid() {
		return "Unknown Operation"
	}
	return categoryDisplayNames[c]
}

// ParseCategory accepts the enum name in any case, with '-' or '_'
// separators.
func ParseCategory(s string) (Category, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for c := Category(0); c < categoryCount; c++ {
		if categoryNames[c] == name {
			return c, nil
		}
	}
	return 0, ErrInvalidCategory
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidCategory
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// codeSpec derives digits and TTL for a category from the policy.
func (p PolicyConfig) codeSpec(c Category) (flows.CodeSpec, bool) {
	if !c.Valid() {
		return flows.CodeSpec{}, false
	}

	spec := flows.CodeSpec{Digits: p.StandardDigits, TTL: p.StandardTTL}
	if c == CategoryAdminOperation {
		spec.Digits = p.ElevatedDigits
	}
	if c == CategorySensitiveOperation {
		spec.TTL = p.ExtendedTTL
	}
	return spec, true
}

// CodeLength returns the number of digits issued for c under p.
func (p PolicyConfig) CodeLength(c Category) int {
	spec, _ := p.codeSpec(c)
	return spec.Digits
}

// TTL returns the lifetime of codes issued for c under p.
func (p PolicyConfig) TTL(c Category) time.Duration {
	spec, _ := p.codeSpec(c)
	return spec.TTL
}
