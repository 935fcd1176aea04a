package application

import (
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/hmis-dev/hmis-sdk/pkg/eventbus"
)

// Controller mounts a group of routes under a unique key.
type Controller interface {
	Register(r *mux.Router)
	Key() string
}

// Module contributes services and controllers to an Application.
type Module interface {
	Name() string
	Register(app Application) error
}

// Application is the service registry shared by all modules.
type Application interface {
	Pool() *pgxpool.Pool
	DB() *sqlx.DB
	Logger() *logrus.Logger
	EventPublisher() eventbus.EventBus
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}
	OnShutdown(fn func())
	Shutdown()
}
