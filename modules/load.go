package modules

import (
	"github.com/hmis-dev/hmis-sdk/modules/calendar"
	"github.com/hmis-dev/hmis-sdk/modules/core"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue"
	"github.com/hmis-dev/hmis-sdk/modules/event"
	"github.com/hmis-dev/hmis-sdk/modules/setting"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
)

// BuiltInModules are ordered by dependency: later modules look up services
// registered by earlier ones.
var BuiltInModules = []application.Module{
	core.NewModule(),
	setting.NewModule(),
	calendar.NewModule(),
	datavalue.NewModule(),
	event.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
