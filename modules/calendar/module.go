package calendar

import (
	"github.com/hmis-dev/hmis-sdk/modules/calendar/presentation/controllers"
	"github.com/hmis-dev/hmis-sdk/modules/calendar/services"
	settingServices "github.com/hmis-dev/hmis-sdk/modules/setting/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/calendar"
)

// NewModule registers the calendar registry. It depends on the setting module.
func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	settings := app.Service(settingServices.SettingService{}).(*settingServices.SettingService)
	svc := services.NewCalendarService(settings, calendar.All()...)
	svc.RegisterValidators(settings)

	app.RegisterServices(svc)
	app.RegisterControllers(controllers.NewCalendarController(app))
	return nil
}

func (m *Module) Name() string {
	return "calendar"
}
