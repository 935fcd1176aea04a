package datavalue

import (
	"net/http"

	corePersistence "github.com/hmis-dev/hmis-sdk/modules/core/infrastructure/persistence"
	coreServices "github.com/hmis-dev/hmis-sdk/modules/core/services"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/domain/datavalue"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/infrastructure/persistence"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/presentation/controllers"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
	"github.com/hmis-dev/hmis-sdk/pkg/metrics"
)

// NewModule registers aggregate data access checks. It depends on the core module.
func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	httpapi.RegisterErrorStatus(datavalue.ErrDataSetNotFound.Code, http.StatusNotFound)
	httpapi.RegisterErrorStatus(datavalue.ErrCategoryOptionComboNotFound.Code, http.StatusNotFound)

	acl := app.Service(coreServices.AclService{}).(*coreServices.AclService)
	loader := app.Service(corePersistence.SharingLoader{}).(*corePersistence.SharingLoader)

	manager := services.NewAggregateAccessManager(acl, conf.Cache.CanWriteCocTTL, conf.Cache.CanWriteCocSize)
	metrics.RegisterCache("can_write_coc", manager.Cache())
	go manager.Cache().Start()
	app.OnShutdown(manager.Cache().Stop)

	app.RegisterServices(
		manager,
		services.NewAccessCheckService(
			persistence.NewCategoryOptionComboRepository(loader),
			persistence.NewDataSetRepository(loader),
			manager,
		),
	)
	app.RegisterControllers(controllers.NewAccessController(app))
	return nil
}

func (m *Module) Name() string {
	return "datavalue"
}
