package data

import (
	"context"
	"fmt"
	"math"

	"github.com/VinothKuppanna/pigeon-routes/internal/geo"
	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/pkg/errors"
	"googlemaps.github.io/maps"
)

type googleEngine struct {
	client *maps.Client
	mode   maps.Mode
}

// NewGoogleEngine returns a RoutingEngine backed by the Directions and
// Distance Matrix APIs. Google cannot leave the destination free, so trips
// keep both the first and the last point in place.
func NewGoogleEngine(client *maps.Client, mode maps.Mode) definition.RoutingEngine {
	if mode == "" {
		mode = maps.TravelModeDriving
	}
	return &googleEngine{client: client, mode: mode}
}

func (g *googleEngine) Route(ctx context.Context, coords []definition.Coordinate) (*definition.RoutingResult, error) {
	route, err := g.directions(ctx, coords, false)
	if err != nil {
		return nil, remoteFailure("google route", err)
	}
	result, err := googleRouteResult(route)
	if err != nil {
		return nil, remoteFailure("google route", err)
	}
	return result, nil
}

func (g *googleEngine) Trip(ctx context.Context, coords []definition.Coordinate) (*definition.TripResult, error) {
	route, err := g.directions(ctx, coords, true)
	if err != nil {
		return nil, remoteFailure("google trip", err)
	}
	result, err := googleRouteResult(route)
	if err != nil {
		return nil, remoteFailure("google trip", err)
	}

	n := len(coords)
	order := make([]int, 0, n)
	order = append(order, 0)
	if n > 2 {
		if len(route.WaypointOrder) != n-2 {
			return nil, errors.Wrapf(definition.ErrRemoteFailure, "google trip: got %d waypoint indices for %d waypoints", len(route.WaypointOrder), n-2)
		}
		for _, idx := range route.WaypointOrder {
			order = append(order, idx+1)
		}
	}
	order = append(order, n-1)
	return &definition.TripResult{RoutingResult: *result, WaypointOrder: order}, nil
}

func (g *googleEngine) Table(ctx context.Context, coords []definition.Coordinate) (*definition.DistanceMatrix, error) {
	places := googlePlaces(coords)
	response, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      places,
		Destinations: places,
		Mode:         g.mode,
	})
	if err != nil {
		return nil, remoteFailure("google table", err)
	}

	n := len(coords)
	if len(response.Rows) != n {
		return nil, errors.Wrapf(definition.ErrRemoteFailure, "google table: got %d rows for %d points", len(response.Rows), n)
	}
	m := &definition.DistanceMatrix{
		Distances: make([][]float64, n),
		Durations: make([][]float64, n),
		Source:    definition.SourceRemote,
	}
	for i, row := range response.Rows {
		if len(row.Elements) != n {
			return nil, errors.Wrapf(definition.ErrRemoteFailure, "google table: row %d has %d elements", i, len(row.Elements))
		}
		m.Distances[i] = make([]float64, n)
		m.Durations[i] = make([]float64, n)
		for j, element := range row.Elements {
			if i == j {
				continue
			}
			if element.Status != "OK" {
				return nil, errors.Wrapf(definition.ErrRemoteFailure, "google table: element %d,%d status %s", i, j, element.Status)
			}
			m.Distances[i][j] = geo.Round(float64(element.Distance.Meters)/1000, 1)
			m.Durations[i][j] = math.Round(element.Duration.Minutes())
		}
	}
	return m, nil
}

func (g *googleEngine) directions(ctx context.Context, coords []definition.Coordinate, optimize bool) (*maps.Route, error) {
	places := googlePlaces(coords)
	request := &maps.DirectionsRequest{
		Origin:      places[0],
		Destination: places[len(places)-1],
		Waypoints:   places[1 : len(places)-1],
		Optimize:    optimize,
		Mode:        g.mode,
	}
	routes, _, err := g.client.Directions(ctx, request)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, errors.Wrap(definition.ErrRemoteFailure, "no routes")
	}
	return &routes[0], nil
}

func googleRouteResult(route *maps.Route) (*definition.RoutingResult, error) {
	var line []definition.Coordinate
	var meters int
	var seconds float64
	segments := make([]definition.RouteSegment, 0, len(route.Legs))
	for _, leg := range route.Legs {
		var points []definition.Coordinate
		for _, step := range leg.Steps {
			decoded, err := step.Polyline.Decode()
			if err != nil {
				return nil, errors.Wrap(err, "decode step polyline")
			}
			points = appendPath(points, fromLatLng(decoded))
		}
		line = appendPath(line, points)
		meters += leg.Distance.Meters
		seconds += leg.Duration.Seconds()
		segments = append(segments, definition.RouteSegment{
			Coordinates: points,
			Distance:    float64(leg.Distance.Meters),
			Duration:    leg.Duration.Seconds(),
		})
	}
	if len(line) == 0 {
		decoded, err := route.OverviewPolyline.Decode()
		if err != nil {
			return nil, errors.Wrap(err, "decode overview polyline")
		}
		line = fromLatLng(decoded)
	}
	if len(line) == 0 {
		return nil, errors.New("empty geometry")
	}
	return &definition.RoutingResult{
		Coordinates:   line,
		TotalDistance: geo.Round(float64(meters)/1000, 1),
		TotalDuration: int(math.Round(seconds / 60)),
		Segments:      segments,
		Source:        definition.SourceRemote,
	}, nil
}

func googlePlaces(coords []definition.Coordinate) []string {
	places := make([]string, len(coords))
	for i, c := range coords {
		places[i] = fmt.Sprintf("%f,%f", c.Lat, c.Lng)
	}
	return places
}

func fromLatLng(points []maps.LatLng) []definition.Coordinate {
	out := make([]definition.Coordinate, len(points))
	for i, p := range points {
		out[i] = definition.Coordinate{Lat: p.Lat, Lng: p.Lng}
	}
	return out
}
