package version

import (
	"testing"
)

// FuzzParseHotfix tests the hotfix-form parser with fuzzing.
// Run with: go test -fuzz=FuzzParseHotfix -fuzztime=30s
func FuzzParseHotfix(f *testing.F) {
	seeds := []string{
		// Valid versions
		"1.0.0",
		"0.0.1",
		"10.20.30",
		"2.0.15.1",
		"2.0.15.12",
		"1.2.3-SNAPSHOT",
		"2.0.15.1-SNAPSHOT",
		"999.999.999",
		// Invalid versions
		"",
		"1",
		"1.0",
		"1.0.0.0",
		"1.0.0.0.0",
		"a.b.c",
		"1.a.0",
		"-1.0.0",
		"1.0.0-",
		"1.0.0-snapshot",
		"1..0",
		".1.0",
		"1.0.",
		"v1.0.0",
		// Injection attempts
		"1.0.0; rm -rf /",
		"1.0.0$(whoami)",
		"1.0.0`ls`",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		v, err := ParseHotfix(input)
		if err != nil {
			return
		}

		// Every accepted version must survive a format/parse round trip.
		back, err := ParseHotfix(v.String())
		if err != nil {
			t.Fatalf("reparse of %q (from %q) failed: %v", v.String(), input, err)
		}
		if !v.Equal(back) {
			t.Fatalf("round trip mismatch: %q -> %q", v.String(), back.String())
		}

		// An accepted hotfix component is never zero.
		if v.HasHotfix() && v.Hotfix() == 0 {
			t.Fatalf("accepted zero hotfix component from %q", input)
		}
	})
}
