package utils

import (
	"math"
	"testing"
)

func TestCalculateHaversineDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, tolerance        float64
	}{
		{"same point", -6.2, 106.8, -6.2, 106.8, 0, 0.001},
		{"one degree latitude", 0, 0, 1, 0, 111195, 5},
		{"jakarta to bandung", -6.2088, 106.8456, -6.9175, 107.6191, 116000, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateHaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("CalculateHaversineDistance() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestOffsetMeters(t *testing.T) {
	lat, lon := OffsetMeters(-6.2088, 106.8456, 30, 40)
	got := CalculateHaversineDistance(-6.2088, 106.8456, lat, lon)
	if math.Abs(got-50) > 0.5 {
		t.Errorf("OffsetMeters() moved %v meters, want 50", got)
	}
}
