package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hmis-dev/hmis-sdk/modules/setting/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
)

type SettingValueDTO struct {
	Value string `json:"value" validate:"required,max=2000"`
}

type SettingsController struct {
	app      application.Application
	basePath string
}

func NewSettingsController(app application.Application) application.Controller {
	return &SettingsController{
		app:      app,
		basePath: "/api/system/settings",
	}
}

func (c *SettingsController) Key() string {
	return c.basePath
}

func (c *SettingsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("/{key}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{key}", c.put).Methods(http.MethodPut)
	router.HandleFunc("/{key}", c.delete).Methods(http.MethodDelete)
}

func (c *SettingsController) service() *services.SettingService {
	return c.app.Service(services.SettingService{}).(*services.SettingService)
}

func (c *SettingsController) list(w http.ResponseWriter, r *http.Request) {
	all, err := c.service().GetAll(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, composables.UseLogger(r.Context()), err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, all)
}

func (c *SettingsController) get(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, err := c.service().GetSettingByName(r.Context(), key)
	if err != nil {
		httpapi.WriteServiceError(w, composables.UseLogger(r.Context()), err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (c *SettingsController) put(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())
	var dto SettingValueDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := validateDTO(&dto); err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	key := mux.Vars(r)["key"]
	if err := c.service().SaveSetting(r.Context(), key, dto.Value); err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"key": key, "value": dto.Value})
}

func (c *SettingsController) delete(w http.ResponseWriter, r *http.Request) {
	if err := c.service().DeleteSetting(r.Context(), mux.Vars(r)["key"]); err != nil {
		httpapi.WriteServiceError(w, composables.UseLogger(r.Context()), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
