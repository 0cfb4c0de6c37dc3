package data

import (
	"context"
	"fmt"
	"time"

	"github.com/VinothKuppanna/pigeon-routes/pkg/data/model"
	def "github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/nsqio/go-nsq"
)

const NSQRoutingRequestTopic = "routing_requests"

var _ model.Publisher = (*nsq.Producer)(nil)

type Middleware func(service def.RoutingService) def.RoutingService

type routingServiceLoggingMW struct {
	def.RoutingService
	logger    log.Logger
	publisher model.Publisher
}

// NewLoggingMiddleware logs every routing operation and archives an entry on
// NSQRoutingRequestTopic when publisher is not nil.
func NewLoggingMiddleware(logger log.Logger, publisher model.Publisher) Middleware {
	return func(service def.RoutingService) def.RoutingService {
		return &routingServiceLoggingMW{service, log.With(logger, "component", "routing_service"), publisher}
	}
}

func (mw *routingServiceLoggingMW) CalculateRoute(ctx context.Context, coords []def.Coordinate) (result *def.RoutingResult, err error) {
	defer func(begin time.Time) {
		mw.log("CalculateRoute", len(coords), routeSource(result), begin, err)
	}(time.Now())
	return mw.RoutingService.CalculateRoute(ctx, coords)
}

func (mw *routingServiceLoggingMW) CalculateOptimizedTrip(ctx context.Context, coords []def.Coordinate) (result *def.TripResult, err error) {
	defer func(begin time.Time) {
		var source def.Source
		if result != nil {
			source = result.Source
		}
		mw.log("CalculateOptimizedTrip", len(coords), source, begin, err)
	}(time.Now())
	return mw.RoutingService.CalculateOptimizedTrip(ctx, coords)
}

func (mw *routingServiceLoggingMW) CalculateConstrainedRoute(ctx context.Context, coords []def.Coordinate) (result *def.RoutingResult, err error) {
	defer func(begin time.Time) {
		mw.log("CalculateConstrainedRoute", len(coords), routeSource(result), begin, err)
	}(time.Now())
	return mw.RoutingService.CalculateConstrainedRoute(ctx, coords)
}

func (mw *routingServiceLoggingMW) GetDistanceMatrix(ctx context.Context, coords []def.Coordinate) (result *def.DistanceMatrix, err error) {
	defer func(begin time.Time) {
		var source def.Source
		if result != nil {
			source = result.Source
		}
		mw.log("GetDistanceMatrix", len(coords), source, begin, err)
	}(time.Now())
	return mw.RoutingService.GetDistanceMatrix(ctx, coords)
}

func (mw *routingServiceLoggingMW) ClearCache() {
	defer func(begin time.Time) {
		mw.log("ClearCache", 0, "", begin, nil)
	}(time.Now())
	mw.RoutingService.ClearCache()
}

func (mw *routingServiceLoggingMW) log(method string, points int, source def.Source, begin time.Time, err error) {
	took := time.Since(begin)
	logger := level.Info(mw.logger)
	severity := "INFO"
	message := fmt.Sprintf("method: %s, points: %d, source: %s", method, points, source)
	switch {
	case err != nil:
		logger = level.Error(mw.logger)
		severity = "ERROR"
		message = fmt.Sprintf("%s, error: %v", message, err)
	case source == def.SourceFallback:
		logger = level.Warn(mw.logger)
		severity = "WARNING"
	}
	_ = logger.Log("method", method, "points", points, "source", source, "took", took, "err", err)

	entry := model.LogEntry{
		Topic:     NSQRoutingRequestTopic,
		Severity:  severity,
		Message:   message,
		Component: "routing_service",
		Method:    method,
		Source:    string(source),
		TookMs:    took.Milliseconds(),
		Time:      begin.UTC(),
	}
	if err := model.Archive(mw.publisher, entry); err != nil {
		_ = level.Error(mw.logger).Log("msg", "failed to archive log entry", "err", err)
	}
}

type routingServiceInstrumentingMW struct {
	def.RoutingService
	requests metrics.Counter
	latency  metrics.Histogram
}

// NewInstrumentingMiddleware counts requests by method and source and
// observes their latency in seconds by method.
func NewInstrumentingMiddleware(requests metrics.Counter, latency metrics.Histogram) Middleware {
	return func(service def.RoutingService) def.RoutingService {
		return &routingServiceInstrumentingMW{service, requests, latency}
	}
}

func (mw *routingServiceInstrumentingMW) CalculateRoute(ctx context.Context, coords []def.Coordinate) (result *def.RoutingResult, err error) {
	defer func(begin time.Time) {
		mw.observe("CalculateRoute", routeSource(result), err, begin)
	}(time.Now())
	return mw.RoutingService.CalculateRoute(ctx, coords)
}

func (mw *routingServiceInstrumentingMW) CalculateOptimizedTrip(ctx context.Context, coords []def.Coordinate) (result *def.TripResult, err error) {
	defer func(begin time.Time) {
		var source def.Source
		if result != nil {
			source = result.Source
		}
		mw.observe("CalculateOptimizedTrip", source, err, begin)
	}(time.Now())
	return mw.RoutingService.CalculateOptimizedTrip(ctx, coords)
}

func (mw *routingServiceInstrumentingMW) CalculateConstrainedRoute(ctx context.Context, coords []def.Coordinate) (result *def.RoutingResult, err error) {
	defer func(begin time.Time) {
		mw.observe("CalculateConstrainedRoute", routeSource(result), err, begin)
	}(time.Now())
	return mw.RoutingService.CalculateConstrainedRoute(ctx, coords)
}

func (mw *routingServiceInstrumentingMW) GetDistanceMatrix(ctx context.Context, coords []def.Coordinate) (result *def.DistanceMatrix, err error) {
	defer func(begin time.Time) {
		var source def.Source
		if result != nil {
			source = result.Source
		}
		mw.observe("GetDistanceMatrix", source, err, begin)
	}(time.Now())
	return mw.RoutingService.GetDistanceMatrix(ctx, coords)
}

func (mw *routingServiceInstrumentingMW) observe(method string, source def.Source, err error, begin time.Time) {
	label := string(source)
	if err != nil {
		label = "invalid"
	}
	mw.requests.With("method", method, "source", label).Add(1)
	mw.latency.With("method", method).Observe(time.Since(begin).Seconds())
}

func routeSource(result *def.RoutingResult) def.Source {
	if result == nil {
		return ""
	}
	return result.Source
}
