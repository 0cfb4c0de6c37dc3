package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/transport"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/go-kit/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const (
	PathCalculateRoute            = "/RoutingService.CalculateRoute"
	PathCalculateOptimizedTrip    = "/RoutingService.CalculateOptimizedTrip"
	PathCalculateConstrainedRoute = "/RoutingService.CalculateConstrainedRoute"
	PathGetDistanceMatrix         = "/RoutingService.GetDistanceMatrix"
	PathDistance                  = "/RoutingService.Distance"
	PathClearCache                = "/RoutingService.ClearCache"
)

type httpResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

type coordinatesHttpRequest struct {
	Coordinates []definition.Coordinate `json:"coordinates"`
}

type distanceHttpRequest struct {
	From *definition.Coordinate `json:"from"`
	To   *definition.Coordinate `json:"to"`
}

type handler struct {
	endpoints *endpoints
	logger    log.Logger
}

func NewHandler(service definition.RoutingService, logger log.Logger) *handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &handler{makeEndpoints(service), log.With(logger, "component", "routes_transport")}
}

func (h *handler) SetupRouts(router *mux.Router) {
	options := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerErrorHandler(transport.NewLogErrorHandler(h.logger)),
	}
	routes := []struct {
		path     string
		endpoint endpoint.Endpoint
		decode   kithttp.DecodeRequestFunc
	}{
		{PathCalculateRoute, h.endpoints.calculateRoute, decodeCoordinatesRequest},
		{PathCalculateOptimizedTrip, h.endpoints.calculateOptimizedTrip, decodeCoordinatesRequest},
		{PathCalculateConstrainedRoute, h.endpoints.calculateConstrainedRoute, decodeCoordinatesRequest},
		{PathGetDistanceMatrix, h.endpoints.getDistanceMatrix, decodeCoordinatesRequest},
		{PathDistance, h.endpoints.distance, decodeDistanceRequest},
		{PathClearCache, h.endpoints.clearCache, kithttp.NopRequestDecoder},
	}
	for _, route := range routes {
		server := kithttp.NewServer(route.endpoint, route.decode, encodeResponse, options...)
		router.Handle(route.path, server).Methods(http.MethodPost)
	}
}

// malformedRequestError marks a body the transport could not decode.
type malformedRequestError struct {
	cause error
}

func (e *malformedRequestError) Error() string {
	return "malformed request: " + e.cause.Error()
}

func decodeCoordinatesRequest(_ context.Context, req *http.Request) (interface{}, error) {
	var httpr coordinatesHttpRequest
	if err := json.NewDecoder(req.Body).Decode(&httpr); err != nil {
		return nil, &malformedRequestError{errors.Wrap(err, "decode coordinates")}
	}
	return &coordinatesRequest{httpr.Coordinates}, nil
}

func decodeDistanceRequest(_ context.Context, req *http.Request) (interface{}, error) {
	var httpr distanceHttpRequest
	if err := json.NewDecoder(req.Body).Decode(&httpr); err != nil {
		return nil, &malformedRequestError{errors.Wrap(err, "decode distance")}
	}
	if httpr.From == nil || httpr.To == nil {
		return nil, &definition.ValidationError{Field: "from,to", Message: "both points are required"}
	}
	return &distanceRequest{from: *httpr.From, to: *httpr.To}, nil
}

func encodeResponse(_ context.Context, resp http.ResponseWriter, r interface{}) error {
	res := r.(*response)
	if res.error != nil {
		encodeError(context.Background(), res.error, resp)
		return nil
	}
	resp.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(resp).Encode(&httpResponse{
		Status: http.StatusText(http.StatusOK),
		Result: res.result,
	})
}

func encodeError(_ context.Context, err error, resp http.ResponseWriter) {
	statusCode := statusCodeOf(err)
	resp.Header().Set("Content-Type", "application/json; charset=utf-8")
	resp.WriteHeader(statusCode)
	_ = json.NewEncoder(resp).Encode(&httpResponse{
		Status:  http.StatusText(statusCode),
		Message: err.Error(),
	})
}

func statusCodeOf(err error) int {
	var validation *definition.ValidationError
	var malformed *malformedRequestError
	switch {
	case errors.As(err, &validation), errors.As(err, &malformed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
