package internaldefs

import (
	"strings"
	"testing"
)

func TestDefinitionsAreUniqueAndPrefixed(t *testing.T) {
	seen := map[string]bool{}
	check := func(name string) {
		if !strings.HasPrefix(name, "gootp_") {
			t.Fatalf("metric %q lacks gootp_ prefix", name)
		}
		if seen[name] {
			t.Fatalf("duplicate metric name %q", name)
		}
		seen[name] = true
	}

	ids := map[uint16]bool{}
	for _, def := range CounterDefs {
		check(def.Name)
		if !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q must end in _total", def.Name)
		}
		if ids[uint16(def.ID)] {
			t.Fatalf("metric id %d exported twice", def.ID)
		}
		ids[uint16(def.ID)] = true
	}
	for _, def := range HistogramDefs {
		check(def.Name)
	}
	for _, def := range GaugeDefs {
		check(def.Name)
	}
	check(AuditDroppedName)
	check(AuditDroppedByEventName)

	if len(HistogramBounds) != len(HistogramBoundSuffix) || len(HistogramBounds) != 8 {
		t.Fatalf("bucket bounds and suffixes must both have 8 entries")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
