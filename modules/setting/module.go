package setting

import (
	"net/http"

	"github.com/hmis-dev/hmis-sdk/modules/setting/domain/setting"
	"github.com/hmis-dev/hmis-sdk/modules/setting/infrastructure/persistence"
	"github.com/hmis-dev/hmis-sdk/modules/setting/presentation/controllers"
	"github.com/hmis-dev/hmis-sdk/modules/setting/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
	"github.com/hmis-dev/hmis-sdk/pkg/metrics"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	httpapi.RegisterErrorStatus(setting.ErrUnknownSetting.Code, http.StatusNotFound)

	svc := services.NewSettingService(
		persistence.NewSettingRepository(),
		app.EventPublisher(),
		conf.Cache.SystemSettingTTL,
	)
	metrics.RegisterCache("system_setting", svc.Cache())
	go svc.Cache().Start()
	app.OnShutdown(svc.Cache().Stop)

	app.RegisterServices(svc)
	app.RegisterControllers(controllers.NewSettingsController(app))
	return nil
}

func (m *Module) Name() string {
	return "setting"
}
