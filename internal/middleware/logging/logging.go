package logging

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VinothKuppanna/pigeon-routes/internal/common"
	"github.com/VinothKuppanna/pigeon-routes/pkg/data/model"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
)

const NSQApiRequestTopic = "api_requests"

type handler struct {
	publisher model.Publisher
	logger    log.Logger
}

// New returns the request logging middleware. publisher may be nil, in which
// case requests are only logged.
func New(publisher model.Publisher, logger log.Logger) *handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &handler{publisher, log.With(logger, "component", "http")}
}

func (h *handler) logging(next http.Handler) http.Handler {
	fn := func(resp http.ResponseWriter, req *http.Request) {
		start := time.Now()
		wrapped := common.WrapResponse(resp)
		next.ServeHTTP(wrapped, req)
		took := time.Since(start)

		_ = level.Info(h.logger).Log("method", req.Method, "path", req.RequestURI,
			"status", wrapped.Status(), "bytes", wrapped.Written(), "took", took)
		h.archive(model.LogEntry{
			Topic:     NSQApiRequestTopic,
			Severity:  "INFO",
			Message:   fmt.Sprintf("status: %s, method: %s, path: %s, duration: %v", http.StatusText(wrapped.Status()), req.Method, req.RequestURI, took),
			Component: "api-service",
			Method:    req.Method,
			TookMs:    took.Milliseconds(),
			Time:      start.UTC(),
		})

		if body := wrapped.ErrorBody(); len(body) > 0 {
			_ = level.Error(h.logger).Log("path", req.RequestURI, "status", wrapped.Status(), "body", string(body))
			h.archive(model.LogEntry{
				Topic:     NSQApiRequestTopic,
				Severity:  "ERROR",
				Message:   string(body),
				Component: "api-service",
				Method:    req.Method,
				Time:      start.UTC(),
			})
		}
	}
	return http.HandlerFunc(fn)
}

func (h *handler) archive(entry model.LogEntry) {
	if err := model.Archive(h.publisher, entry); err != nil {
		_ = level.Error(h.logger).Log("msg", "failed to publish log entry", "err", err)
	}
}

func (h *handler) Setup(router *mux.Router) {
	router.Use(h.logging)
}
