// Package fallback builds approximate routes without touching the network.
// Results are deterministic for a given input.
package fallback

import (
	"math"

	"github.com/VinothKuppanna/pigeon-routes/internal/geo"
	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
)

const (
	DefaultSteps           = 20
	DefaultAverageSpeedKmh = 40.0
)

type Planner struct {
	steps    int
	speedKmh float64
}

type Option func(*Planner)

// WithSteps sets the number of interpolated points per leg.
func WithSteps(steps int) Option {
	return func(p *Planner) {
		if steps > 0 {
			p.steps = steps
		}
	}
}

// WithAverageSpeed sets the speed used to turn distance into duration.
func WithAverageSpeed(kmh float64) Option {
	return func(p *Planner) {
		if kmh > 0 {
			p.speedKmh = kmh
		}
	}
}

func New(opts ...Option) *Planner {
	p := &Planner{steps: DefaultSteps, speedKmh: DefaultAverageSpeedKmh}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StraightLine joins consecutive points with interpolated straight segments.
// Distance is measured over the input points only.
func (p *Planner) StraightLine(coords []definition.Coordinate) *definition.RoutingResult {
	line := make([]definition.Coordinate, 0, (len(coords)-1)*p.steps+1)
	for i := 0; i+1 < len(coords); i++ {
		line = append(line, geo.Interpolate(coords[i], coords[i+1], p.steps)...)
	}
	if len(coords) > 0 {
		line = append(line, coords[len(coords)-1])
	}

	km := geo.Round(geo.PathDistance(coords), 1)
	return &definition.RoutingResult{
		Coordinates:   line,
		TotalDistance: km,
		TotalDuration: p.minutes(km),
		Segments:      []definition.RouteSegment{},
		Source:        definition.SourceFallback,
	}
}

// NearestNeighborTrip orders the points greedily from index 0, always moving
// to the closest unvisited point, without returning to the start.
func (p *Planner) NearestNeighborTrip(coords []definition.Coordinate) *definition.TripResult {
	order := NearestNeighborOrder(coords)
	ordered := make([]definition.Coordinate, len(order))
	for i, idx := range order {
		ordered[i] = coords[idx]
	}
	return &definition.TripResult{
		RoutingResult: *p.StraightLine(ordered),
		WaypointOrder: order,
	}
}

// ApproximateMatrix returns all-pair great-circle distances and the matching
// durations at the planner's average speed.
func (p *Planner) ApproximateMatrix(coords []definition.Coordinate) *definition.DistanceMatrix {
	n := len(coords)
	m := &definition.DistanceMatrix{
		Distances: make([][]float64, n),
		Durations: make([][]float64, n),
		Source:    definition.SourceFallback,
	}
	for i := 0; i < n; i++ {
		m.Distances[i] = make([]float64, n)
		m.Durations[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			km := geo.Round(geo.Distance(coords[i], coords[j]), 1)
			m.Distances[i][j] = km
			m.Durations[i][j] = float64(p.minutes(km))
		}
	}
	return m
}

func (p *Planner) minutes(km float64) int {
	return int(math.Round(km / p.speedKmh * 60))
}

// NearestNeighborOrder returns a visiting order starting at index 0. Ties go
// to the lower index.
func NearestNeighborOrder(coords []definition.Coordinate) []int {
	n := len(coords)
	if n == 0 {
		return []int{}
	}
	visited := make([]bool, n)
	order := make([]int, 0, n)

	current := 0
	visited[current] = true
	order = append(order, current)
	for len(order) < n {
		next, best := -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if d := geo.Distance(coords[current], coords[j]); next == -1 || d < best {
				next, best = j, d
			}
		}
		visited[next] = true
		order = append(order, next)
		current = next
	}
	return order
}
