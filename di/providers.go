package di

import (
	"net/http"

	"github.com/VinothKuppanna/pigeon-routes/configs"
	"github.com/VinothKuppanna/pigeon-routes/internal/fallback"
	"github.com/VinothKuppanna/pigeon-routes/pkg/data"
	"github.com/VinothKuppanna/pigeon-routes/pkg/data/model"
	"github.com/VinothKuppanna/pigeon-routes/pkg/domain"
	"github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"googlemaps.github.io/maps"
)

// Metrics are the instruments of the routing service middleware.
type Metrics struct {
	Requests metrics.Counter
	Latency  metrics.Histogram
}

// NewPrometheusMetrics registers the routing metrics with the default
// Prometheus registry. Call it once per process.
func NewPrometheusMetrics() *Metrics {
	return &Metrics{
		Requests: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "routing",
			Subsystem: "service",
			Name:      "requests_total",
			Help:      "Routing requests by method and result source.",
		}, []string{"method", "source"}),
		Latency: kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "routing",
			Subsystem: "service",
			Name:      "request_duration_seconds",
			Help:      "Routing request latency in seconds.",
		}, []string{"method"}),
	}
}

// Application holds the routing service twice: decorated for callers and
// bare for stats and scheduled maintenance.
type Application struct {
	Service definition.RoutingService
	Core    *domain.RoutingService
}

func ProvideHTTPClient(config *configs.Config) *http.Client {
	return &http.Client{Timeout: config.Limits.RequestTimeout}
}

// ProvideRoutingEngine builds the configured engine. The google engine
// optimizes only the intermediate stops of a trip: its last input point is
// always the destination, unlike osrm which leaves the end free.
func ProvideRoutingEngine(config *configs.Config, client *http.Client) (definition.RoutingEngine, error) {
	switch config.Engine.Name {
	case configs.EngineOSRM:
		return data.NewOSRMEngine(config.Engine.BaseURL, config.Engine.Profile, client)
	case configs.EngineGoogle:
		mapsClient, err := maps.NewClient(maps.WithAPIKey(config.Engine.APIKey), maps.WithHTTPClient(client))
		if err != nil {
			return nil, errors.Wrap(err, "google maps client")
		}
		return data.NewGoogleEngine(mapsClient, maps.Mode(config.Engine.Profile)), nil
	default:
		return nil, errors.Errorf("unknown routing engine %q", config.Engine.Name)
	}
}

func ProvideRoutingService(config *configs.Config, engine definition.RoutingEngine, logger log.Logger) *domain.RoutingService {
	planner := fallback.New(
		fallback.WithSteps(config.Fallback.Steps),
		fallback.WithAverageSpeed(config.Fallback.AverageSpeedKmh),
	)
	return domain.NewRoutingService(engine,
		domain.WithCacheCapacity(config.Cache.Capacity),
		domain.WithCacheTTL(config.Cache.TTL),
		domain.WithMinInterval(config.Limits.MinInterval),
		domain.WithRequestTimeout(config.Limits.RequestTimeout),
		domain.WithRetryPolicy(domain.RetryPolicy{MaxAttempts: config.Limits.MaxAttempts}),
		domain.WithPlanner(planner),
		domain.WithLogger(logger),
	)
}

// ProvideApplication decorates core with instrumentation when m is not nil,
// then with logging.
func ProvideApplication(core *domain.RoutingService, logger log.Logger, publisher model.Publisher, m *Metrics) *Application {
	var service definition.RoutingService = core
	if m != nil {
		service = data.NewInstrumentingMiddleware(m.Requests, m.Latency)(service)
	}
	service = data.NewLoggingMiddleware(logger, publisher)(service)
	return &Application{Service: service, Core: core}
}
