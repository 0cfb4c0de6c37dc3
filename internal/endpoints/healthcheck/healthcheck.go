package healthcheck

import (
	"encoding/json"
	"net/http"

	"github.com/VinothKuppanna/pigeon-routes/pkg/domain"
	"github.com/gorilla/mux"
)

const PathHealthCheck = "/health-check"

// StatsReporter is implemented by *domain.RoutingService.
type StatsReporter interface {
	Stats() domain.Stats
}

type healthCheckResponse struct {
	Status string        `json:"status"`
	Engine string        `json:"engine"`
	Stats  *domain.Stats `json:"stats,omitempty"`
}

type handler struct {
	engine   string
	reporter StatsReporter
}

func NewHandler(engine string, reporter StatsReporter) *handler {
	return &handler{engine, reporter}
}

func (h *handler) SetupRouts(router *mux.Router) {
	router.HandleFunc(PathHealthCheck, h.healthCheck).Methods(http.MethodGet)
}

// healthCheck always answers 200: an unreachable engine only degrades
// results, it never makes the service unavailable.
func (h *handler) healthCheck(writer http.ResponseWriter, _ *http.Request) {
	response := &healthCheckResponse{
		Status: http.StatusText(http.StatusOK),
		Engine: h.engine,
	}
	if h.reporter != nil {
		stats := h.reporter.Stats()
		response.Stats = &stats
	}
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(writer).Encode(response)
}
