package core

import (
	"github.com/hmis-dev/hmis-sdk/modules/core/infrastructure/persistence"
	"github.com/hmis-dev/hmis-sdk/modules/core/presentation/api"
	"github.com/hmis-dev/hmis-sdk/modules/core/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
	"github.com/hmis-dev/hmis-sdk/pkg/middleware"
)

// NewModule registers users, sharing and ACL services used by the data modules.
func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	users := persistence.NewUserRepository()

	app.RegisterServices(
		services.NewAclService(),
		persistence.NewSharingLoader(),
	)
	app.RegisterMiddleware(middleware.ProvideUser(users, conf.UserHeader))
	app.RegisterControllers(api.NewMeController(app))
	return nil
}

func (m *Module) Name() string {
	return "core"
}
