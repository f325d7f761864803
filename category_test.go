package goOTP

import (
	"errors"
	"testing"
)

func TestCategoryNames(t *testing.T) {
	want := map[Category][2]string{
		CategoryStandard:            {"STANDARD", "Standard Login"},
		CategoryFarmingOperation:    {"FARMING_OPERATION", "Farming Operation"},
		CategoryBuyingOperation:     {"BUYING_OPERATION", "Buying Operation"},
		CategoryAnalysisOperation:   {"ANALYSIS_OPERATION", "Analysis Operation"},
		CategoryGovernmentOperation: {"GOVERNMENT_OPERATION", "Government Operation"},
		CategoryAdminOperation:      {"ADMIN_OPERATION", "Administrative Operation"},
		CategorySensitiveOperation:  {"SENSITIVE_OPERATION", "Sensitive Operation"},
	}
	if len(Categories()) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(Categories()))
	}
	for c, names := range want {
		if c.String() != names[0] || c.DisplayName() != names[1] {
			t.Fatalf("%d: got %q/%q", c, c.String(), c.DisplayName())
		}
	}
	if Category(99).Valid() || Category(99).String() != "UNKNOWN" {
		t.Fatal("out of range category must be invalid")
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"ADMIN_OPERATION", "admin_operation", " admin-operation "} {
		c, err := ParseCategory(in)
		if err != nil || c != CategoryAdminOperation {
			t.Fatalf("ParseCategory(%q) = %v, %v", in, c, err)
		}
	}
	if _, err := ParseCategory("root"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}

	var c Category
	if err := c.UnmarshalText([]byte("sensitive_operation")); err != nil || c != CategorySensitiveOperation {
		t.Fatalf("UnmarshalText failed: %v %v", c, err)
	}
	text, err := CategoryBuyingOperation.MarshalText()
	if err != nil || string(text) != "BUYING_OPERATION" {
		t.Fatalf("MarshalText = %q, %v", text, err)
	}
	if _, err := Category(99).MarshalText(); err == nil {
		t.Fatal("expected MarshalText to reject invalid category")
	}
}
