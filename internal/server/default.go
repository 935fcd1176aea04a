package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
	"github.com/hmis-dev/hmis-sdk/pkg/constants"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
	"github.com/hmis-dev/hmis-sdk/pkg/middleware"
	"github.com/hmis-dev/hmis-sdk/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	DB            *sqlx.DB
}

// RegisterDefaultMiddleware installs the base middleware stack. It must run before
// modules are loaded so module middleware sees the logger, database and request params.
func RegisterDefaultMiddleware(options *DefaultOptions) {
	conf := options.Configuration
	app := options.Application

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader
	loggerOpts.Headers = append(loggerOpts.Headers, conf.UserHeader)
	if conf.Prometheus.Enabled {
		loggerOpts.QuietPaths = append(loggerOpts.QuietPaths, conf.Prometheus.Path)
	}

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),

		middleware.TracedMiddleware("database"),
		middleware.ProvideDB(options.DB),
		middleware.Provide(constants.AppKey, app),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.AllowedOrigins()...),
	}

	if conf.RateLimit.Enabled {
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             middleware.NewMemoryStore(),
				KeyHeader:         conf.RealIPHeader,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(conf.RealIPHeader, conf.RequestIDHeader),
	)
	app.RegisterMiddleware(middlewares...)
}

// Default builds the HTTP server from the controllers and middleware registered on the application.
func Default(options *DefaultOptions) *server.HTTPServer {
	return server.NewHTTPServer(options.Application, NotFound(), MethodNotAllowed())
}

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", map[string]string{"path": r.URL.Path})
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", map[string]string{"method": r.Method})
	})
}
