package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
)

// ProvideUser resolves the calling user from header, which the authenticating
// gateway sets to the user's UID. Requests without the header stay anonymous.
func ProvideUser(users user.Repository, header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := strings.TrimSpace(r.Header.Get(header))
			if uid == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := users.GetByUID(r.Context(), uid)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNKNOWN_USER", "unknown user", map[string]string{"uid": uid})
					return
				}
				composables.UseLogger(r.Context()).WithError(err).Error("failed to resolve user")
				_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithUser(r.Context(), u)))
		})
	}
}
