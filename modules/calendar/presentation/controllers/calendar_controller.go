package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hmis-dev/hmis-sdk/modules/calendar/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/calendar"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/constants"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

type CalendarResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	DateFormat  string `json:"dateFormat"`
	ISO8601     bool   `json:"iso8601"`
}

type SystemCalendarResponse struct {
	Calendar   CalendarResponse      `json:"calendar"`
	DateFormat calendar.DateFormat   `json:"dateFormat"`
	Today      calendar.DateTimeUnit `json:"today"`
	Formatted  string                `json:"formatted"`
}

type ConvertQuery struct {
	From string `form:"from" validate:"required"`
	To   string `form:"to" validate:"required"`
	Date string `form:"date" validate:"required"`
}

type ConvertResponse struct {
	From calendar.DateTimeUnit `json:"from"`
	To   calendar.DateTimeUnit `json:"to"`
}

type CalendarController struct {
	app      application.Application
	basePath string
}

func NewCalendarController(app application.Application) application.Controller {
	return &CalendarController{
		app:      app,
		basePath: "/api/system",
	}
}

func (c *CalendarController) Key() string {
	return c.basePath
}

func (c *CalendarController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/calendars", c.listCalendars).Methods(http.MethodGet)
	router.HandleFunc("/calendars/convert", c.convert).Methods(http.MethodGet)
	router.HandleFunc("/calendar", c.systemCalendar).Methods(http.MethodGet)
	router.HandleFunc("/dateFormats", c.listDateFormats).Methods(http.MethodGet)
}

func (c *CalendarController) service() *services.CalendarService {
	return c.app.Service(services.CalendarService{}).(*services.CalendarService)
}

func toCalendarResponse(cal calendar.Calendar) CalendarResponse {
	return CalendarResponse{
		Name:        cal.Name(),
		DisplayName: cal.DisplayName(),
		DateFormat:  cal.DateFormat(),
		ISO8601:     cal.IsISO8601(),
	}
}

func (c *CalendarController) listCalendars(w http.ResponseWriter, r *http.Request) {
	cals := c.service().GetAllCalendars()
	out := make([]CalendarResponse, 0, len(cals))
	for _, cal := range cals {
		out = append(out, toCalendarResponse(cal))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *CalendarController) listDateFormats(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, c.service().GetAllDateFormats())
}

func (c *CalendarController) systemCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := composables.UseLogger(ctx)
	svc := c.service()
	cal, err := svc.GetSystemCalendar(ctx)
	if err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	format, err := svc.GetSystemDateFormat(ctx)
	if err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	today := cal.Today()
	_ = httpapi.WriteJSON(w, http.StatusOK, SystemCalendarResponse{
		Calendar:   toCalendarResponse(cal),
		DateFormat: format,
		Today:      today,
		Formatted:  cal.FormattedDate(today),
	})
}

func (c *CalendarController) convert(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())
	q, err := composables.UseQuery(&ConvertQuery{}, r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	if err := constants.Validate.Struct(q); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	d, err := ParseDate(q.Date)
	if err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	out, err := c.service().ConvertDate(q.From, q.To, d)
	if err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, ConvertResponse{From: d, To: out})
}

var errBadDate = serrors.NewError("INVALID_DATE", "date must be yyyy-MM-dd", "Calendar.InvalidDate")

// ParseDate reads a yyyy-MM-dd date without validating it against any calendar.
func ParseDate(s string) (calendar.DateTimeUnit, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return calendar.DateTimeUnit{}, errBadDate
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return calendar.DateTimeUnit{}, errBadDate
		}
		nums[i] = n
	}
	return calendar.DateTimeUnit{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}
