package common

import "testing"

func TestUUIDint64Unique(t *testing.T) {
	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := UUIDint64()
		if id <= 0 {
			t.Fatalf("expected positive id, got %d", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIfEmptyStr(t *testing.T) {
	if got := IfEmptyStr("  ", NA); got != NA {
		t.Fatalf("expected %q, got %q", NA, got)
	}
	if got := IfEmptyStr("fw1", NA); got != "fw1" {
		t.Fatalf("expected fw1, got %q", got)
	}
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{0.25, 1, 0.2},
		{0.35, 1, 0.3},
		{12.35, 1, 12.3},
		{16.666666666666668, 1, 16.7},
		{0.125, 2, 0.12},
		{0.375, 2, 0.38},
		{2.675, 2, 2.67},
		{7.5, 0, 8},
		{0, 2, 0},
	}
	for _, tt := range tests {
		if got := RoundFloat(tt.v, tt.places); got != tt.want {
			t.Fatalf("RoundFloat(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
