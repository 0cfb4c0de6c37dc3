package routes

import (
	"context"

	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/go-kit/kit/endpoint"
)

type endpoints struct {
	calculateRoute            endpoint.Endpoint
	calculateOptimizedTrip    endpoint.Endpoint
	calculateConstrainedRoute endpoint.Endpoint
	getDistanceMatrix         endpoint.Endpoint
	distance                  endpoint.Endpoint
	clearCache                endpoint.Endpoint
}

func makeEndpoints(service definition.RoutingService) *endpoints {
	return &endpoints{
		calculateRoute:            makeCalculateRouteEndpoint(service.CalculateRoute),
		calculateOptimizedTrip:    makeCalculateOptimizedTripEndpoint(service),
		calculateConstrainedRoute: makeCalculateRouteEndpoint(service.CalculateConstrainedRoute),
		getDistanceMatrix:         makeGetDistanceMatrixEndpoint(service),
		distance:                  makeDistanceEndpoint(service),
		clearCache:                makeClearCacheEndpoint(service),
	}
}

type coordinatesRequest struct {
	coordinates []definition.Coordinate
}

type distanceRequest struct {
	from definition.Coordinate
	to   definition.Coordinate
}

// response carries either a result or the error the service refused the
// request with. Transport errors never reach it.
type response struct {
	result interface{}
	error  error
}

type routeFunc func(context.Context, []definition.Coordinate) (*definition.RoutingResult, error)

func makeCalculateRouteEndpoint(calculate routeFunc) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*coordinatesRequest)
		result, err := calculate(ctx, req.coordinates)
		if err != nil {
			return &response{error: err}, nil
		}
		return &response{result: result}, nil
	}
}

func makeCalculateOptimizedTripEndpoint(service definition.RoutingService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*coordinatesRequest)
		result, err := service.CalculateOptimizedTrip(ctx, req.coordinates)
		if err != nil {
			return &response{error: err}, nil
		}
		return &response{result: result}, nil
	}
}

func makeGetDistanceMatrixEndpoint(service definition.RoutingService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*coordinatesRequest)
		result, err := service.GetDistanceMatrix(ctx, req.coordinates)
		if err != nil {
			return &response{error: err}, nil
		}
		return &response{result: result}, nil
	}
}

type distanceResult struct {
	Kilometers float64 `json:"kilometers"`
}

func makeDistanceEndpoint(service definition.RoutingService) endpoint.Endpoint {
	return func(_ context.Context, request interface{}) (interface{}, error) {
		req := request.(*distanceRequest)
		if err := definition.ValidateCoordinates([]definition.Coordinate{req.from, req.to}); err != nil {
			return &response{error: err}, nil
		}
		return &response{result: &distanceResult{Kilometers: service.Distance(req.from, req.to)}}, nil
	}
}

func makeClearCacheEndpoint(service definition.RoutingService) endpoint.Endpoint {
	return func(_ context.Context, _ interface{}) (interface{}, error) {
		service.ClearCache()
		return &response{}, nil
	}
}
