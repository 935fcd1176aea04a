package event

import (
	"net/http"

	corePersistence "github.com/hmis-dev/hmis-sdk/modules/core/infrastructure/persistence"
	coreServices "github.com/hmis-dev/hmis-sdk/modules/core/services"
	"github.com/hmis-dev/hmis-sdk/modules/event/domain/event"
	"github.com/hmis-dev/hmis-sdk/modules/event/infrastructure/persistence"
	"github.com/hmis-dev/hmis-sdk/modules/event/presentation/controllers"
	"github.com/hmis-dev/hmis-sdk/modules/event/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
	"github.com/hmis-dev/hmis-sdk/pkg/metrics"
)

// NewModule registers event loading. It depends on the core module.
func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	httpapi.RegisterErrorStatus(event.ErrProgramNotFound.Code, http.StatusNotFound)

	acl := app.Service(coreServices.AclService{}).(*coreServices.AclService)
	loader := app.Service(corePersistence.SharingLoader{}).(*corePersistence.SharingLoader)

	supplier := persistence.NewProgramSupplier(loader, conf.Cache.ProgramTTL, conf.Cache.UserGroupTTL)
	metrics.RegisterCache("program", supplier.ProgramCache())
	metrics.RegisterCache("user_group", supplier.UserGroupCache())
	supplier.Start()
	app.OnShutdown(supplier.Stop)
	app.EventPublisher().Subscribe(func(*event.ProgramsChanged) {
		supplier.Invalidate()
	})

	app.RegisterServices(
		supplier,
		services.NewEventService(
			supplier,
			persistence.NewEventStore(conf.Event.PartitionSize),
			acl,
			app.EventPublisher(),
		),
	)
	app.RegisterControllers(controllers.NewEventController(app))
	return nil
}

func (m *Module) Name() string {
	return "event"
}
