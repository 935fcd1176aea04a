package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/hmis-dev/hmis-sdk/internal/server"
	"github.com/hmis-dev/hmis-sdk/modules"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/authz"
	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
	"github.com/hmis-dev/hmis-sdk/pkg/dbopen"
	"github.com/hmis-dev/hmis-sdk/pkg/eventbus"
	"github.com/hmis-dev/hmis-sdk/pkg/logging"
	"github.com/hmis-dev/hmis-sdk/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.CollectorURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.CollectorURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, db, err := dbopen.Open(ctx, dbopen.Options{
		ConnString: conf.Database.Opts,
		MaxConns:   conf.Database.MaxConns,
		Tracing:    conf.OpenTelemetry.Enabled,
	})
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	// Fail at startup rather than on the first guarded request.
	logger.WithField("mode", authz.Use().Mode()).Info("authorization policy loaded")

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		DB:       db,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	options := &server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		DB:            db,
	}
	server.RegisterDefaultMiddleware(options)
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	defer app.Shutdown()
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance := server.Default(options)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := serverInstance.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
