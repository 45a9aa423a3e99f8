package topology

import (
	"testing"

	"github.com/talkincode/topolive/internal/domain"
)

func TestUtilization(t *testing.T) {
	tests := []struct {
		name     string
		in, out  float64
		capacity int
		want     float64
	}{
		{"no capacity", 500, 500, 0, 0},
		{"negative capacity", 10, 10, -100, 0},
		{"saturated", 500, 500, 500, 100.0},
		{"partial", 100, 50, 1000, 7.5},
		{"idle", 0, 0, 1000, 0},
		{"oversubscribed", 1500, 1500, 1000, 150.0},
		{"rounding", 1, 0, 3, 16.7},
		{"quarter percent boundary", 2.5, 2.5, 1000, 0.2},
		{"12.35 boundary", 147, 100, 1000, 12.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Utilization(domain.BandwidthSample{Inbound: tt.in, Outbound: tt.out}, tt.capacity)
			if got != tt.want {
				t.Fatalf("Utilization(%v, %v, %d) = %v, want %v", tt.in, tt.out, tt.capacity, got, tt.want)
			}
		})
	}
}
