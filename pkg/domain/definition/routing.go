package definition

import (
	"context"
	"fmt"

	"github.com/VinothKuppanna/pigeon-routes/internal/geo"
	"github.com/pkg/errors"
)

// ErrRemoteFailure marks any failed exchange with the routing engine.
var ErrRemoteFailure = errors.New("routing engine failure")

// Coordinate is a (latitude, longitude) pair in degrees.
type Coordinate = geo.Coordinate

// Source tells where a result came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

type RoutingService interface {
	CalculateRoute(ctx context.Context, coords []Coordinate) (*RoutingResult, error)
	CalculateOptimizedTrip(ctx context.Context, coords []Coordinate) (*TripResult, error)
	CalculateConstrainedRoute(ctx context.Context, coords []Coordinate) (*RoutingResult, error)
	GetDistanceMatrix(ctx context.Context, coords []Coordinate) (*DistanceMatrix, error)
	Distance(a, b Coordinate) float64
	ClearCache()
}

// RoutingEngine is a remote routing backend. Every failure it returns is
// treated as a remote failure by the caller.
type RoutingEngine interface {
	Route(ctx context.Context, coords []Coordinate) (*RoutingResult, error)
	Trip(ctx context.Context, coords []Coordinate) (*TripResult, error)
	Table(ctx context.Context, coords []Coordinate) (*DistanceMatrix, error)
}

// RouteSegment is one leg between consecutive waypoints.
type RouteSegment struct {
	Coordinates []Coordinate `json:"coordinates"`
	Distance    float64      `json:"distance"` // meters
	Duration    float64      `json:"duration"` // seconds
}

type RoutingResult struct {
	Coordinates   []Coordinate   `json:"coordinates"`
	TotalDistance float64        `json:"totalDistance"` // km, one decimal
	TotalDuration int            `json:"totalDuration"` // minutes
	Segments      []RouteSegment `json:"segments"`
	Source        Source         `json:"source"`
}

// Degraded reports whether the result is a geometric approximation.
func (r *RoutingResult) Degraded() bool {
	return r.Source == SourceFallback
}

type TripResult struct {
	RoutingResult
	WaypointOrder []int `json:"waypointOrder"`
}

// DistanceMatrix holds n×n km and minute matrices indexed [from][to].
type DistanceMatrix struct {
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
	Source    Source      `json:"source"`
}

func (m *DistanceMatrix) Degraded() bool {
	return m.Source == SourceFallback
}

// ValidationError is returned for input the service refuses to route.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field %q: %s", e.Field, e.Message)
}

// ValidateCoordinates checks that coords holds at least two in-range points.
func ValidateCoordinates(coords []Coordinate) error {
	if len(coords) < 2 {
		return &ValidationError{Field: "coordinates", Message: fmt.Sprintf("at least 2 points required, got %d", len(coords))}
	}
	for i, c := range coords {
		if err := c.Validate(); err != nil {
			return &ValidationError{Field: fmt.Sprintf("coordinates[%d]", i), Message: err.Error()}
		}
	}
	return nil
}
