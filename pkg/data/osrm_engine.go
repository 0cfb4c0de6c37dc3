package data

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/VinothKuppanna/pigeon-routes/internal/geo"
	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/pkg/errors"
)

const (
	DefaultOSRMURL     = "https://router.project-osrm.org"
	DefaultOSRMProfile = "driving"

	osrmCodeOk = "Ok"

	routeQuery = "overview=full&geometries=geojson&steps=true"
	tripQuery  = "source=first&roundtrip=false&overview=full&geometries=geojson&steps=true"
	tableQuery = "annotations=distance,duration"
)

type osrmStatus struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *osrmStatus) check() error {
	if s.Code != osrmCodeOk {
		return errors.Wrapf(definition.ErrRemoteFailure, "osrm code %q: %s", s.Code, s.Message)
	}
	return nil
}

type osrmGeometry struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type osrmStep struct {
	Geometry osrmGeometry `json:"geometry"`
}

type osrmLeg struct {
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Steps    []osrmStep `json:"steps"`
}

type osrmRoute struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Geometry osrmGeometry `json:"geometry"`
	Legs     []osrmLeg    `json:"legs"`
}

type osrmWaypoint struct {
	WaypointIndex int `json:"waypoint_index"`
	TripsIndex    int `json:"trips_index"`
}

type osrmRouteResponse struct {
	osrmStatus
	Routes []osrmRoute `json:"routes"`
}

type osrmTripResponse struct {
	osrmStatus
	Trips     []osrmRoute    `json:"trips"`
	Waypoints []osrmWaypoint `json:"waypoints"`
}

type osrmTableResponse struct {
	osrmStatus
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

type osrmResponse interface {
	check() error
}

type osrmEngine struct {
	route endpoint.Endpoint
	trip  endpoint.Endpoint
	table endpoint.Endpoint
}

// NewOSRMEngine returns a RoutingEngine talking to an OSRM HTTP server.
// Each call makes exactly one request.
func NewOSRMEngine(baseURL, profile string, client *http.Client) (definition.RoutingEngine, error) {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if profile == "" {
		profile = DefaultOSRMProfile
	}
	if client == nil {
		client = http.DefaultClient
	}
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "NewOSRMEngine")
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.Errorf("NewOSRMEngine: base url %q must be absolute", baseURL)
	}

	makeEndpoint := func(service, query string, body func() osrmResponse) endpoint.Endpoint {
		return kithttp.NewClient(
			http.MethodGet,
			target,
			encodeOSRMRequest(service, profile, query),
			decodeOSRMResponse(body),
			kithttp.SetClient(client),
		).Endpoint()
	}
	return &osrmEngine{
		route: makeEndpoint("route", routeQuery, func() osrmResponse { return &osrmRouteResponse{} }),
		trip:  makeEndpoint("trip", tripQuery, func() osrmResponse { return &osrmTripResponse{} }),
		table: makeEndpoint("table", tableQuery, func() osrmResponse { return &osrmTableResponse{} }),
	}, nil
}

func (e *osrmEngine) Route(ctx context.Context, coords []definition.Coordinate) (*definition.RoutingResult, error) {
	response, err := e.route(ctx, coords)
	if err != nil {
		return nil, remoteFailure("osrm route", err)
	}
	body := response.(*osrmRouteResponse)
	if len(body.Routes) == 0 {
		return nil, errors.Wrap(definition.ErrRemoteFailure, "osrm route: no routes")
	}
	result, err := body.Routes[0].toResult()
	if err != nil {
		return nil, remoteFailure("osrm route", err)
	}
	return result, nil
}

func (e *osrmEngine) Trip(ctx context.Context, coords []definition.Coordinate) (*definition.TripResult, error) {
	response, err := e.trip(ctx, coords)
	if err != nil {
		return nil, remoteFailure("osrm trip", err)
	}
	body := response.(*osrmTripResponse)
	if len(body.Trips) == 0 {
		return nil, errors.Wrap(definition.ErrRemoteFailure, "osrm trip: no trips")
	}
	order, err := waypointOrder(body.Waypoints, len(coords))
	if err != nil {
		return nil, remoteFailure("osrm trip", err)
	}
	result, err := body.Trips[0].toResult()
	if err != nil {
		return nil, remoteFailure("osrm trip", err)
	}
	return &definition.TripResult{RoutingResult: *result, WaypointOrder: order}, nil
}

func (e *osrmEngine) Table(ctx context.Context, coords []definition.Coordinate) (*definition.DistanceMatrix, error) {
	response, err := e.table(ctx, coords)
	if err != nil {
		return nil, remoteFailure("osrm table", err)
	}
	body := response.(*osrmTableResponse)
	n := len(coords)
	distances, err := convertMatrix(body.Distances, n, func(m float64) float64 { return geo.Round(m/1000, 1) })
	if err != nil {
		return nil, remoteFailure("osrm table distances", err)
	}
	durations, err := convertMatrix(body.Durations, n, func(s float64) float64 { return math.Round(s / 60) })
	if err != nil {
		return nil, remoteFailure("osrm table durations", err)
	}
	return &definition.DistanceMatrix{
		Distances: distances,
		Durations: durations,
		Source:    definition.SourceRemote,
	}, nil
}

func encodeOSRMRequest(service, profile, query string) kithttp.EncodeRequestFunc {
	return func(_ context.Context, req *http.Request, request interface{}) error {
		coords, ok := request.([]definition.Coordinate)
		if !ok {
			return errors.Errorf("osrm %s: unexpected request %T", service, request)
		}
		req.URL.Path = path.Join("/", req.URL.Path, service, "v1", profile, wireCoordinates(coords))
		req.URL.RawQuery = query
		req.Header.Set("Accept", "application/json")
		return nil
	}
}

func decodeOSRMResponse(newBody func() osrmResponse) kithttp.DecodeResponseFunc {
	return func(_ context.Context, resp *http.Response) (interface{}, error) {
		body := newBody()
		decodeErr := json.NewDecoder(resp.Body).Decode(body)
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, errors.Wrapf(definition.ErrRemoteFailure, "osrm http status %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, errors.Wrapf(definition.ErrRemoteFailure, "osrm decode: %v", decodeErr)
		}
		if err := body.check(); err != nil {
			return nil, err
		}
		return body, nil
	}
}

// wireCoordinates renders coords in the engine's lng,lat;lng,lat order.
func wireCoordinates(coords []definition.Coordinate) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.FormatFloat(c.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
	}
	return strings.Join(parts, ";")
}

func fromWire(g osrmGeometry) ([]definition.Coordinate, error) {
	out := make([]definition.Coordinate, 0, len(g.Coordinates))
	for _, p := range g.Coordinates {
		if len(p) < 2 {
			return nil, errors.Errorf("malformed position %v", p)
		}
		out = append(out, definition.Coordinate{Lat: p[1], Lng: p[0]})
	}
	return out, nil
}

func (r osrmRoute) toResult() (*definition.RoutingResult, error) {
	line, err := fromWire(r.Geometry)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, errors.New("empty geometry")
	}
	segments := make([]definition.RouteSegment, 0, len(r.Legs))
	for _, leg := range r.Legs {
		var points []definition.Coordinate
		for _, step := range leg.Steps {
			stepPoints, err := fromWire(step.Geometry)
			if err != nil {
				return nil, err
			}
			points = appendPath(points, stepPoints)
		}
		segments = append(segments, definition.RouteSegment{
			Coordinates: points,
			Distance:    leg.Distance,
			Duration:    leg.Duration,
		})
	}
	return &definition.RoutingResult{
		Coordinates:   line,
		TotalDistance: geo.Round(r.Distance/1000, 1),
		TotalDuration: int(math.Round(r.Duration / 60)),
		Segments:      segments,
		Source:        definition.SourceRemote,
	}, nil
}

// waypointOrder inverts the per-input trip positions into a visiting order.
func waypointOrder(waypoints []osrmWaypoint, n int) ([]int, error) {
	if len(waypoints) != n {
		return nil, errors.Errorf("got %d waypoints for %d points", len(waypoints), n)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = -1
	}
	for input, wp := range waypoints {
		if wp.TripsIndex != 0 {
			return nil, errors.Errorf("waypoint %d split into trip %d", input, wp.TripsIndex)
		}
		if wp.WaypointIndex < 0 || wp.WaypointIndex >= n || order[wp.WaypointIndex] != -1 {
			return nil, errors.Errorf("waypoint %d has invalid index %d", input, wp.WaypointIndex)
		}
		order[wp.WaypointIndex] = input
	}
	if order[0] != 0 {
		return nil, errors.Errorf("trip starts at %d, not at the first point", order[0])
	}
	return order, nil
}

func convertMatrix(raw [][]*float64, n int, convert func(float64) float64) ([][]float64, error) {
	if len(raw) != n {
		return nil, errors.Errorf("got %d rows for %d points", len(raw), n)
	}
	out := make([][]float64, n)
	for i, row := range raw {
		if len(row) != n {
			return nil, errors.Errorf("row %d has %d columns for %d points", i, len(row), n)
		}
		out[i] = make([]float64, n)
		for j, cell := range row {
			if i == j {
				continue
			}
			if cell == nil {
				return nil, errors.Errorf("no route from %d to %d", i, j)
			}
			out[i][j] = convert(*cell)
		}
	}
	return out, nil
}

// appendPath joins next onto line, dropping the shared joint.
func appendPath(line, next []definition.Coordinate) []definition.Coordinate {
	if len(line) > 0 && len(next) > 0 && line[len(line)-1] == next[0] {
		next = next[1:]
	}
	return append(line, next...)
}

// remoteFailure makes sure err matches ErrRemoteFailure while keeping its text.
func remoteFailure(op string, err error) error {
	if errors.Is(err, definition.ErrRemoteFailure) {
		return errors.Wrap(err, op)
	}
	return errors.Wrapf(definition.ErrRemoteFailure, "%s: %v", op, err)
}
