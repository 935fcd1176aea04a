package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hmis-dev/hmis-sdk/modules/event/domain/event"
	"github.com/hmis-dev/hmis-sdk/modules/event/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/constants"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
)

type EventsQuery struct {
	Enrollments    []string `form:"enrollment" validate:"required,min=1,max=1000,dive,len=11"`
	IncludeDeleted bool     `form:"includeDeleted"`
}

type PreflightDTO struct {
	Events []*event.Event `json:"events" validate:"required,min=1,max=1000,dive,required"`
}

type EventsResponse struct {
	Enrollments map[string][]*event.Event `json:"enrollments"`
}

type EventController struct {
	app      application.Application
	basePath string
}

func NewEventController(app application.Application) application.Controller {
	return &EventController{
		app:      app,
		basePath: "/api/events",
	}
}

func (c *EventController) Key() string {
	return c.basePath
}

func (c *EventController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("/preflight", c.preflight).Methods(http.MethodPost)
	router.HandleFunc("/cache/invalidate", c.invalidate).Methods(http.MethodPost)
}

func (c *EventController) service() *services.EventService {
	return c.app.Service(services.EventService{}).(*services.EventService)
}

func (c *EventController) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := composables.UseLogger(ctx)
	u, err := composables.UseUser(ctx)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "a user is required", nil)
		return
	}
	q, err := composables.UseQuery(&EventsQuery{}, r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	if err := constants.Validate.Struct(q); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}

	events, err := c.service().GetEventsByEnrollments(ctx, u, q.Enrollments, q.IncludeDeleted)
	if err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, EventsResponse{Enrollments: events})
}

func (c *EventController) preflight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := composables.UseLogger(ctx)
	u, err := composables.UseUser(ctx)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "a user is required", nil)
		return
	}
	var dto PreflightDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := constants.Validate.Struct(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	res, err := c.service().PreflightImport(ctx, u, dto.Events)
	if err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	status := http.StatusOK
	if !res.OK() {
		status = http.StatusConflict
	}
	_ = httpapi.WriteJSON(w, status, res)
}

func (c *EventController) invalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := composables.UseUser(ctx)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "a user is required", nil)
		return
	}
	if err := c.service().InvalidatePrograms(ctx, u); err != nil {
		httpapi.WriteServiceError(w, composables.UseLogger(ctx), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
