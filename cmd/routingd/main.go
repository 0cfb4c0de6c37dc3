package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/VinothKuppanna/pigeon-routes/configs"
	"github.com/VinothKuppanna/pigeon-routes/di"
	"github.com/VinothKuppanna/pigeon-routes/internal/endpoints/healthcheck"
	"github.com/VinothKuppanna/pigeon-routes/internal/endpoints/routes"
	"github.com/VinothKuppanna/pigeon-routes/internal/middleware/logging"
	"github.com/VinothKuppanna/pigeon-routes/internal/scheduler"
	"github.com/VinothKuppanna/pigeon-routes/pkg/data/model"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/nsqio/go-nsq"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const cacheFlushJob = "route-cache-flush"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "routingd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to the YAML config file")
	dotenv := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	config := configs.DefaultConfig()
	if *configFile != "" {
		if err := config.Read(*configFile); err != nil {
			return err
		}
	}
	if err := config.ReadEnv(*dotenv); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	logger := newLogger(config.LogLevel)
	_ = level.Info(logger).Log("msg", "starting", "config", config.String())
	if config.Engine.Name == configs.EngineGoogle {
		_ = level.Warn(logger).Log("msg", "google engine keeps the last point of a trip as its destination")
	}

	var publisher model.Publisher
	if config.NsqdAddress != "" {
		producer, err := nsq.NewProducer(config.NsqdAddress, nsq.NewConfig())
		if err != nil {
			return errors.Wrap(err, "nsq producer")
		}
		defer producer.Stop()
		publisher = producer
	}

	app, err := di.InitApplication(config, logger, publisher, di.NewPrometheusMetrics())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs := scheduler.New(nil, logger)
	defer jobs.Stop()
	jobs.AddPeriodic(ctx, scheduler.Job{
		ID:   cacheFlushJob,
		Task: func(context.Context) { app.Service.ClearCache() },
	}, config.Cache.FlushInterval)

	router := mux.NewRouter()
	logging.New(publisher, logger).Setup(router)
	healthcheck.NewHandler(config.Engine.Name, app.Core).SetupRouts(router)
	routes.NewHandler(app.Service, logger).SetupRouts(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr: ":" + strconv.Itoa(config.Server.Port),
		Handler: handlers.CORS(
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		_ = level.Info(logger).Log("msg", "listening", "addr", server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err = <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	_ = level.Info(logger).Log("msg", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(logLevel string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var allow level.Option
	switch logLevel {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}
	return level.NewFilter(logger, allow)
}
