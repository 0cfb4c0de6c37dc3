package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/VinothKuppanna/pigeon-routes/pkg/data/model"
	def "github.com/VinothKuppanna/pigeon-routes/pkg/domain/definition"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/go-kit/log"
	"github.com/nsqio/go-nsq"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoutingService struct {
	source  def.Source
	err     error
	cleared int
}

func (s *stubRoutingService) CalculateRoute(_ context.Context, coords []def.Coordinate) (*def.RoutingResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &def.RoutingResult{Coordinates: coords, Source: s.source}, nil
}

func (s *stubRoutingService) CalculateOptimizedTrip(ctx context.Context, coords []def.Coordinate) (*def.TripResult, error) {
	route, err := s.CalculateRoute(ctx, coords)
	if err != nil {
		return nil, err
	}
	return &def.TripResult{RoutingResult: *route, WaypointOrder: []int{0, 1}}, nil
}

func (s *stubRoutingService) CalculateConstrainedRoute(ctx context.Context, coords []def.Coordinate) (*def.RoutingResult, error) {
	return s.CalculateRoute(ctx, coords)
}

func (s *stubRoutingService) GetDistanceMatrix(_ context.Context, _ []def.Coordinate) (*def.DistanceMatrix, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &def.DistanceMatrix{Source: s.source}, nil
}

func (s *stubRoutingService) Distance(_, _ def.Coordinate) float64 { return 1.5 }

func (s *stubRoutingService) ClearCache() { s.cleared++ }

type recordingPublisher struct {
	topics  []string
	entries []model.LogEntry
	err     error
}

func (p *recordingPublisher) PublishAsync(topic string, body []byte, _ chan *nsq.ProducerTransaction, _ ...interface{}) error {
	var entry model.LogEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return err
	}
	p.topics = append(p.topics, topic)
	p.entries = append(p.entries, entry)
	return p.err
}

var twoPoints = []def.Coordinate{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		service      *stubRoutingService
		wantSeverity string
		wantLevel    string
	}{
		{"remote", &stubRoutingService{source: def.SourceRemote}, "INFO", "level=info"},
		{"fallback", &stubRoutingService{source: def.SourceFallback}, "WARNING", "level=warn"},
		{"invalid input", &stubRoutingService{err: &def.ValidationError{Field: "coordinates", Message: "too few"}}, "ERROR", "level=error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			publisher := &recordingPublisher{}
			svc := NewLoggingMiddleware(log.NewLogfmtLogger(&buf), publisher)(tt.service)

			_, _ = svc.CalculateRoute(context.Background(), twoPoints)

			assert.Contains(t, buf.String(), "method=CalculateRoute")
			assert.Contains(t, buf.String(), "points=2")
			assert.Contains(t, buf.String(), tt.wantLevel)
			require.Len(t, publisher.entries, 1)
			assert.Equal(t, NSQRoutingRequestTopic, publisher.topics[0])
			assert.Equal(t, tt.wantSeverity, publisher.entries[0].Severity)
			assert.Equal(t, "CalculateRoute", publisher.entries[0].Method)
			assert.Equal(t, string(tt.service.source), publisher.entries[0].Source)
		})
	}
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	stub := &stubRoutingService{source: def.SourceRemote}
	svc := NewLoggingMiddleware(log.NewNopLogger(), nil)(stub)
	ctx := context.Background()

	trip, err := svc.CalculateOptimizedTrip(ctx, twoPoints)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, trip.WaypointOrder)

	matrix, err := svc.GetDistanceMatrix(ctx, twoPoints)
	require.NoError(t, err)
	assert.Equal(t, def.SourceRemote, matrix.Source)

	assert.Equal(t, 1.5, svc.Distance(twoPoints[0], twoPoints[1]))
	svc.ClearCache()
	assert.Equal(t, 1, stub.cleared)
}

func TestLoggingMiddleware_PublishFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	publisher := &recordingPublisher{err: errors.New("nsqd unreachable")}
	svc := NewLoggingMiddleware(log.NewLogfmtLogger(&buf), publisher)(&stubRoutingService{source: def.SourceRemote})

	_, err := svc.GetDistanceMatrix(context.Background(), twoPoints)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "failed to archive log entry")
	assert.Contains(t, buf.String(), "nsqd unreachable")
}

func TestInstrumentingMiddleware(t *testing.T) {
	requests := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{Name: "requests_total"}, []string{"method", "source"})
	latency := stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{Name: "request_duration_seconds"}, []string{"method"})
	instrument := NewInstrumentingMiddleware(kitprometheus.NewCounter(requests), kitprometheus.NewHistogram(latency))
	ctx := context.Background()

	remote := instrument(&stubRoutingService{source: def.SourceRemote})
	fallback := instrument(&stubRoutingService{source: def.SourceFallback})
	invalid := instrument(&stubRoutingService{err: &def.ValidationError{}})

	_, _ = remote.CalculateRoute(ctx, twoPoints)
	_, _ = remote.CalculateRoute(ctx, twoPoints)
	_, _ = fallback.CalculateRoute(ctx, twoPoints)
	_, _ = fallback.GetDistanceMatrix(ctx, twoPoints)
	_, _ = invalid.CalculateOptimizedTrip(ctx, twoPoints)
	_, _ = remote.CalculateConstrainedRoute(ctx, twoPoints)

	assert.Equal(t, 2.0, testutil.ToFloat64(requests.WithLabelValues("CalculateRoute", "remote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("CalculateRoute", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("GetDistanceMatrix", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("CalculateOptimizedTrip", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("CalculateConstrainedRoute", "remote")))
	assert.Equal(t, 4, testutil.CollectAndCount(latency))
}
