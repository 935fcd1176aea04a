package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/hmis-dev/hmis-sdk/modules/datavalue/services"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/constants"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

type AccessCheckDTO struct {
	Action               string `json:"action" validate:"required,oneof=read write"`
	DataElement          string `json:"dataElement" validate:"omitempty,max=11"`
	DataSet              string `json:"dataSet" validate:"required_without_all=CategoryOptionCombo AttributeOptionCombo,max=11"`
	CategoryOptionCombo  string `json:"categoryOptionCombo" validate:"omitempty,max=11"`
	AttributeOptionCombo string `json:"attributeOptionCombo" validate:"omitempty,max=11"`
}

func (d *AccessCheckDTO) Validate() error {
	err := constants.Validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return serrors.ProcessValidatorErrors(verrs, jsonFieldName)
	}
	return err
}

func jsonFieldName(field string) string {
	switch field {
	case "Action":
		return "action"
	case "DataElement":
		return "dataElement"
	case "DataSet":
		return "dataSet"
	case "CategoryOptionCombo":
		return "categoryOptionCombo"
	case "AttributeOptionCombo":
		return "attributeOptionCombo"
	}
	return ""
}

func (d *AccessCheckDTO) ToAccessCheck() services.AccessCheck {
	return services.AccessCheck{
		Action:               d.Action,
		DataElement:          d.DataElement,
		DataSet:              d.DataSet,
		CategoryOptionCombo:  d.CategoryOptionCombo,
		AttributeOptionCombo: d.AttributeOptionCombo,
	}
}

type AccessController struct {
	app      application.Application
	basePath string
}

func NewAccessController(app application.Application) application.Controller {
	return &AccessController{
		app:      app,
		basePath: "/api/dataValues",
	}
}

func (c *AccessController) Key() string {
	return c.basePath
}

func (c *AccessController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/access", c.checkAccess).Methods(http.MethodPost)
}

func (c *AccessController) checkAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := composables.UseLogger(ctx)
	u, err := composables.UseUser(ctx)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "a user is required", nil)
		return
	}

	var dto AccessCheckDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := dto.Validate(); err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}

	svc := c.app.Service(services.AccessCheckService{}).(*services.AccessCheckService)
	res, err := svc.CheckAccess(ctx, u, dto.ToAccessCheck())
	if err != nil {
		httpapi.WriteServiceError(w, logger, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}
