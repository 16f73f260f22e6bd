package utils

import "testing"

func TestPickIndexDeterministic(t *testing.T) {
	for _, key := range []string{"INC-001", "64f0c2", ""} {
		a := PickIndex(key, 7)
		b := PickIndex(key, 7)
		if a != b {
			t.Fatalf("expected deterministic index for %q", key)
		}
		if a < 0 || a >= 7 {
			t.Fatalf("index out of range: %d", a)
		}
	}
}
