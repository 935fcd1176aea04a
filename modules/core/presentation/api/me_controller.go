package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/pkg/application"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
)

type RoleResponse struct {
	UID  string `json:"id"`
	Name string `json:"name"`
}

// MeResponse describes the calling user as resolved from the gateway header.
type MeResponse struct {
	UID         string         `json:"id"`
	Username    string         `json:"username"`
	SuperUser   bool           `json:"superUser"`
	Authorities []string       `json:"authorities"`
	Roles       []RoleResponse `json:"userRoles"`
	Groups      []string       `json:"userGroups"`
}

func toMeResponse(u *user.User) MeResponse {
	roles := make([]RoleResponse, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, RoleResponse{UID: r.UID, Name: r.Name})
	}
	authorities := u.Authorities()
	if authorities == nil {
		authorities = []string{}
	}
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return MeResponse{
		UID:         u.UID,
		Username:    u.Username,
		SuperUser:   u.IsSuper(),
		Authorities: authorities,
		Roles:       roles,
		Groups:      groups,
	}
}

type MeController struct {
	app      application.Application
	basePath string
}

func NewMeController(app application.Application) application.Controller {
	return &MeController{
		app:      app,
		basePath: "/api/me",
	}
}

func (c *MeController) Key() string {
	return c.basePath
}

func (c *MeController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.get).Methods(http.MethodGet)
}

func (c *MeController) get(w http.ResponseWriter, r *http.Request) {
	u, err := composables.UseUser(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "a user is required", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toMeResponse(u))
}
