package domain

import (
	"context"
	"time"

	"github.com/VinothKuppanna/pigeon-routes/internal/cache"
	"github.com/VinothKuppanna/pigeon-routes/internal/fallback"
	"github.com/VinothKuppanna/pigeon-routes/internal/geo"
	"github.com/VinothKuppanna/pigeon-routes/internal/ratelimit"
	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/benbjohnson/clock"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

const DefaultRequestTimeout = 10 * time.Second

// RetryPolicy bounds how many times one operation may hit the engine before
// falling back. Every attempt goes through the rate limiter.
type RetryPolicy struct {
	MaxAttempts int
}

// RetryNone makes a single attempt per operation.
var RetryNone = RetryPolicy{MaxAttempts: 1}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Stats is a snapshot of the service counters.
type Stats struct {
	RemoteCalls    int64 `json:"remoteCalls"`
	RemoteFailures int64 `json:"remoteFailures"`
	Fallbacks      int64 `json:"fallbacks"`
	CacheHits      int64 `json:"cacheHits"`
	CacheSize      int   `json:"cacheSize"`
}

type options struct {
	cacheCapacity int
	cacheTTL      time.Duration
	minInterval   time.Duration
	clock         clock.Clock
	timeout       time.Duration
	retry         RetryPolicy
	logger        log.Logger
	planner       *fallback.Planner
}

type Option func(*options)

func WithCacheCapacity(capacity int) Option {
	return func(o *options) { o.cacheCapacity = capacity }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

// WithMinInterval sets the spacing between engine requests. Zero disables
// rate limiting.
func WithMinInterval(interval time.Duration) Option {
	return func(o *options) { o.minInterval = interval }
}

func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithRequestTimeout bounds each engine request. Zero leaves only the
// caller's deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(o *options) { o.retry = policy }
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithPlanner(planner *fallback.Planner) Option {
	return func(o *options) { o.planner = planner }
}

// RoutingService answers routing queries from the engine when it can and
// from the fallback planner when it cannot. Only engine routes are cached.
// It is safe for concurrent use.
type RoutingService struct {
	engine  definition.RoutingEngine
	cache   *cache.RouteCache
	limiter *ratelimit.Limiter
	planner *fallback.Planner
	timeout time.Duration
	retry   RetryPolicy
	logger  log.Logger
	flights singleflight.Group

	remoteCalls    atomic.Int64
	remoteFailures atomic.Int64
	fallbacks      atomic.Int64
	cacheHits      atomic.Int64
}

func NewRoutingService(engine definition.RoutingEngine, opts ...Option) *RoutingService {
	o := &options{
		cacheCapacity: cache.DefaultCapacity,
		minInterval:   ratelimit.DefaultInterval,
		timeout:       DefaultRequestTimeout,
		retry:         RetryNone,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.logger == nil {
		o.logger = log.NewNopLogger()
	}
	if o.planner == nil {
		o.planner = fallback.New()
	}
	return &RoutingService{
		engine:  engine,
		cache:   cache.New(o.cacheCapacity, o.cacheTTL),
		limiter: ratelimit.New(o.minInterval, o.clock),
		planner: o.planner,
		timeout: o.timeout,
		retry:   o.retry,
		logger:  log.With(o.logger, "component", "routing_service"),
	}
}

func (s *RoutingService) CalculateRoute(ctx context.Context, coords []definition.Coordinate) (*definition.RoutingResult, error) {
	if err := definition.ValidateCoordinates(coords); err != nil {
		return nil, err
	}

	key := cache.Key(coords)
	if cached, ok := s.cache.Get(key); ok {
		s.cacheHits.Inc()
		return cloneResult(&cached), nil
	}

	// The shared request outlives any single caller.
	flight := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		if cached, ok := s.cache.Get(key); ok {
			s.cacheHits.Inc()
			return &cached, nil
		}
		var result *definition.RoutingResult
		err := s.remote(flight, "route", func(ctx context.Context) (err error) {
			result, err = s.engine.Route(ctx, coords)
			return err
		})
		if err != nil {
			return (*definition.RoutingResult)(nil), nil
		}
		s.cache.Put(key, *result)
		return result, nil
	})

	select {
	case res := <-ch:
		if result := res.Val.(*definition.RoutingResult); result != nil {
			return cloneResult(result), nil
		}
	case <-ctx.Done():
		_ = level.Debug(s.logger).Log("op", "route", "err", ctx.Err(), "msg", "caller gone, using fallback")
	}
	s.fallbacks.Inc()
	return s.planner.StraightLine(coords), nil
}

// CalculateConstrainedRoute routes through coords in the given order. It
// never reorders waypoints, for callers bound to a pickup-before-delivery
// sequence.
func (s *RoutingService) CalculateConstrainedRoute(ctx context.Context, coords []definition.Coordinate) (*definition.RoutingResult, error) {
	return s.CalculateRoute(ctx, coords)
}

// CalculateOptimizedTrip asks the engine for the best visiting order with the
// first point fixed as origin and no return leg.
func (s *RoutingService) CalculateOptimizedTrip(ctx context.Context, coords []definition.Coordinate) (*definition.TripResult, error) {
	if err := definition.ValidateCoordinates(coords); err != nil {
		return nil, err
	}
	if len(coords) == 2 {
		route, err := s.CalculateRoute(ctx, coords)
		if err != nil {
			return nil, err
		}
		return &definition.TripResult{RoutingResult: *route, WaypointOrder: []int{0, 1}}, nil
	}

	var trip *definition.TripResult
	err := s.remote(ctx, "trip", func(ctx context.Context) (err error) {
		trip, err = s.engine.Trip(ctx, coords)
		return err
	})
	if err != nil {
		s.fallbacks.Inc()
		return s.planner.NearestNeighborTrip(coords), nil
	}
	return trip, nil
}

func (s *RoutingService) GetDistanceMatrix(ctx context.Context, coords []definition.Coordinate) (*definition.DistanceMatrix, error) {
	if err := definition.ValidateCoordinates(coords); err != nil {
		return nil, err
	}

	var matrix *definition.DistanceMatrix
	err := s.remote(ctx, "table", func(ctx context.Context) (err error) {
		matrix, err = s.engine.Table(ctx, coords)
		return err
	})
	if err != nil {
		s.fallbacks.Inc()
		return s.planner.ApproximateMatrix(coords), nil
	}
	return matrix, nil
}

// Distance is the great-circle distance in kilometers. It never touches the
// network.
func (s *RoutingService) Distance(a, b definition.Coordinate) float64 {
	return geo.Distance(a, b)
}

func (s *RoutingService) ClearCache() {
	s.cache.Clear()
	_ = level.Info(s.logger).Log("msg", "route cache cleared")
}

func (s *RoutingService) Stats() Stats {
	return Stats{
		RemoteCalls:    s.remoteCalls.Load(),
		RemoteFailures: s.remoteFailures.Load(),
		Fallbacks:      s.fallbacks.Load(),
		CacheHits:      s.cacheHits.Load(),
		CacheSize:      s.cache.Len(),
	}
}

// remote runs call under the rate limiter and the per-request timeout,
// following the retry policy. A nil error means call succeeded.
func (s *RoutingService) remote(ctx context.Context, op string, call func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.retry.attempts(); attempt++ {
		if err = s.limiter.Wait(ctx); err != nil {
			s.remoteFailures.Inc()
			break
		}

		s.remoteCalls.Inc()
		callCtx, cancel := s.requestContext(ctx)
		err = call(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		s.remoteFailures.Inc()
		_ = level.Debug(s.logger).Log("op", op, "attempt", attempt, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	_ = level.Warn(s.logger).Log("op", op, "err", err, "msg", "routing engine unavailable, using fallback")
	return err
}

func (s *RoutingService) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func cloneResult(r *definition.RoutingResult) *definition.RoutingResult {
	out := *r
	out.Coordinates = append([]definition.Coordinate(nil), r.Coordinates...)
	out.Segments = make([]definition.RouteSegment, len(r.Segments))
	for i, seg := range r.Segments {
		out.Segments[i] = seg
		out.Segments[i].Coordinates = append([]definition.Coordinate(nil), seg.Coordinates...)
	}
	return &out
}
