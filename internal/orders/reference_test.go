package orders

import (
	"strings"
	"testing"
	"time"
)

func TestNewReferenceFormat(t *testing.T) {
	at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ref := NewReference(at)

	if !strings.HasPrefix(ref, "ORD-260831-") {
		t.Fatalf("unexpected prefix in %q", ref)
	}
	suffix := strings.TrimPrefix(ref, "ORD-260831-")
	if len(suffix) != 10 {
		t.Fatalf("expected 10-char suffix, got %q", suffix)
	}
	if suffix != strings.ToUpper(suffix) {
		t.Fatalf("suffix should be uppercase: %q", suffix)
	}
}

func TestNewReferenceUniqueness(t *testing.T) {
	at := time.Now()
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		ref := NewReference(at)
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
	}
}
