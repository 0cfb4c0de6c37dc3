package fallback

import (
	"math"
	"sort"
	"testing"

	"github.com/VinothKuppanna/pigeon-routes/internal/geo"
	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lima = []definition.Coordinate{
	{Lat: -12.046374, Lng: -77.042793},
	{Lat: -12.056374, Lng: -77.052793},
}

func TestPlanner_StraightLine(t *testing.T) {
	p := New()

	got := p.StraightLine(lima)

	require.Len(t, got.Coordinates, 21)
	assert.Equal(t, lima[0], got.Coordinates[0])
	assert.Equal(t, lima[1], got.Coordinates[20])

	wantKm := geo.Round(geo.Distance(lima[0], lima[1]), 1)
	assert.Equal(t, wantKm, got.TotalDistance)
	assert.Equal(t, 1.6, got.TotalDistance)
	assert.Equal(t, int(math.Round(wantKm/40*60)), got.TotalDuration)
	assert.Empty(t, got.Segments)
	assert.True(t, got.Degraded())
}

func TestPlanner_StraightLineMultiLeg(t *testing.T) {
	coords := []definition.Coordinate{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.1}, {Lat: 0.1, Lng: 0.1}, {Lat: 0.1, Lng: 0}}
	got := New(WithSteps(5)).StraightLine(coords)

	require.Len(t, got.Coordinates, 3*5+1)
	assert.Equal(t, coords[0], got.Coordinates[0])
	assert.Equal(t, coords[1], got.Coordinates[5])
	assert.Equal(t, coords[3], got.Coordinates[15])
	assert.Equal(t, geo.Round(geo.PathDistance(coords), 1), got.TotalDistance)
}

func TestPlanner_AverageSpeed(t *testing.T) {
	coords := []definition.Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}}
	slow := New().StraightLine(coords)
	fast := New(WithAverageSpeed(80)).StraightLine(coords)

	assert.Equal(t, 111.2, slow.TotalDistance)
	assert.Equal(t, 167, slow.TotalDuration)
	assert.Equal(t, 83, fast.TotalDuration)
}

func TestNearestNeighborOrder(t *testing.T) {
	tests := []struct {
		name   string
		coords []definition.Coordinate
		want   []int
	}{
		{
			name:   "points on a meridian",
			coords: []definition.Coordinate{{Lat: 0, Lng: 0}, {Lat: 3, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 2, Lng: 0}},
			want:   []int{0, 2, 3, 1},
		},
		{
			name:   "origin stays first even when far away",
			coords: []definition.Coordinate{{Lat: 10, Lng: 10}, {Lat: 0, Lng: 0.2}, {Lat: 0, Lng: 0.1}, {Lat: 9, Lng: 9}},
			want:   []int{0, 3, 1, 2},
		},
		{
			name:   "duplicates break ties by index",
			coords: []definition.Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}},
			want:   []int{0, 1, 2},
		},
		{
			name:   "single point",
			coords: []definition.Coordinate{{Lat: 5, Lng: 5}},
			want:   []int{0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestNeighborOrder(tt.coords))
		})
	}
}

func TestPlanner_NearestNeighborTripIsPermutation(t *testing.T) {
	coords := []definition.Coordinate{
		{Lat: -12.0464, Lng: -77.0428},
		{Lat: -12.1211, Lng: -77.0297},
		{Lat: -12.0560, Lng: -77.0844},
		{Lat: -12.0972, Lng: -77.0365},
		{Lat: -12.0700, Lng: -77.0500},
		{Lat: -11.9900, Lng: -77.0600},
	}
	got := New().NearestNeighborTrip(coords)

	require.Len(t, got.WaypointOrder, len(coords))
	assert.Equal(t, 0, got.WaypointOrder[0])
	sorted := append([]int(nil), got.WaypointOrder...)
	sort.Ints(sorted)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, sorted)

	last := coords[got.WaypointOrder[len(coords)-1]]
	assert.Equal(t, coords[0], got.Coordinates[0])
	assert.Equal(t, last, got.Coordinates[len(got.Coordinates)-1])
	assert.Equal(t, definition.SourceFallback, got.Source)
}

func TestPlanner_ApproximateMatrix(t *testing.T) {
	coords := []definition.Coordinate{
		{Lat: -12.046374, Lng: -77.042793},
		{Lat: -12.056374, Lng: -77.052793},
		{Lat: -12.121100, Lng: -77.029700},
	}
	m := New().ApproximateMatrix(coords)

	require.Len(t, m.Distances, 3)
	require.Len(t, m.Durations, 3)
	for i := range coords {
		require.Len(t, m.Distances[i], 3)
		require.Len(t, m.Durations[i], 3)
		assert.Zero(t, m.Distances[i][i])
		assert.Zero(t, m.Durations[i][i])
	}
	assert.Equal(t, geo.Round(geo.Distance(coords[0], coords[1]), 1), m.Distances[0][1])
	assert.Equal(t, m.Distances[0][2], m.Distances[2][0])
	assert.Equal(t, math.Round(m.Distances[0][2]/40*60), m.Durations[0][2])
	assert.True(t, m.Degraded())
}
