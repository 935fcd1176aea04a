package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/hmis-dev/hmis-sdk/modules/setting/domain/setting"
	settingServices "github.com/hmis-dev/hmis-sdk/modules/setting/services"
	"github.com/hmis-dev/hmis-sdk/pkg/calendar"
	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

var ErrUnknownCalendar = serrors.NewError("UNKNOWN_CALENDAR", "unknown calendar", "Calendar.Unknown")

// SettingReader is the part of the settings service the registry depends on.
type SettingReader interface {
	GetStringSetting(ctx context.Context, key setting.Key) (string, error)
}

// ValidatorRegistry accepts per-setting value validators.
type ValidatorRegistry interface {
	RegisterValidator(key setting.Key, fn settingServices.ValidateFunc)
}

// CalendarService resolves calendars by name and the system calendar from settings.
type CalendarService struct {
	settings  SettingReader
	calendars map[string]calendar.Calendar
}

func NewCalendarService(settings SettingReader, calendars ...calendar.Calendar) *CalendarService {
	if len(calendars) == 0 {
		calendars = calendar.All()
	}
	m := make(map[string]calendar.Calendar, len(calendars))
	for _, c := range calendars {
		m[c.Name()] = c
	}
	return &CalendarService{settings: settings, calendars: m}
}

// RegisterValidators rejects calendar and date format settings the registry cannot resolve.
func (s *CalendarService) RegisterValidators(settings ValidatorRegistry) {
	settings.RegisterValidator(setting.KeyCalendar, func(value string) error {
		if _, ok := s.calendars[value]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCalendar, value)
		}
		return nil
	})
	settings.RegisterValidator(setting.KeyDateFormat, func(value string) error {
		for _, f := range calendar.DateFormats() {
			if f.Name == value {
				return nil
			}
		}
		return serrors.NewError("UNKNOWN_DATE_FORMAT", "unknown date format: "+value, "Calendar.UnknownDateFormat")
	})
}

// GetAllCalendars returns every registered calendar ordered by name.
func (s *CalendarService) GetAllCalendars() []calendar.Calendar {
	out := make([]calendar.Calendar, 0, len(s.calendars))
	for _, c := range s.calendars {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

func (s *CalendarService) GetAllDateFormats() []calendar.DateFormat {
	return calendar.DateFormats()
}

// GetCalendar returns the calendar registered as name.
func (s *CalendarService) GetCalendar(name string) (calendar.Calendar, error) {
	c, ok := s.calendars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCalendar, name)
	}
	return c, nil
}

// GetSystemCalendar returns the configured calendar, or ISO 8601 when the setting names
// an unregistered calendar, using the system date format.
func (s *CalendarService) GetSystemCalendar(ctx context.Context) (calendar.Calendar, error) {
	key, err := s.settings.GetStringSetting(ctx, setting.KeyCalendar)
	if err != nil {
		return nil, err
	}
	format, err := s.settings.GetStringSetting(ctx, setting.KeyDateFormat)
	if err != nil {
		return nil, err
	}
	c, ok := s.calendars[key]
	if !ok {
		c = calendar.ISO8601()
	}
	return c.WithDateFormat(format), nil
}

// GetSystemDateFormat returns the configured date format or the first supported one.
func (s *CalendarService) GetSystemDateFormat(ctx context.Context) (calendar.DateFormat, error) {
	name, err := s.settings.GetStringSetting(ctx, setting.KeyDateFormat)
	if err != nil {
		return calendar.DateFormat{}, err
	}
	for _, f := range calendar.DateFormats() {
		if f.Name == name {
			return f, nil
		}
	}
	return calendar.DateFormats()[0], nil
}

// ConvertDate converts d from one registered calendar to another through ISO 8601.
func (s *CalendarService) ConvertDate(from, to string, d calendar.DateTimeUnit) (calendar.DateTimeUnit, error) {
	src, err := s.GetCalendar(from)
	if err != nil {
		return calendar.DateTimeUnit{}, err
	}
	dst, err := s.GetCalendar(to)
	if err != nil {
		return calendar.DateTimeUnit{}, err
	}
	iso, err := src.ToISO(d)
	if err != nil {
		return calendar.DateTimeUnit{}, err
	}
	return dst.FromISO(iso)
}
