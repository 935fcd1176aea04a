package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/constants"
)

func Provide(k constants.ContextKey, v any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), k, v)))
		})
	}
}

// RequestParams stores the caller's address, user agent and request id in the context.
func RequestParams(realIPHeader, requestIDHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _ := realIP(r, realIPHeader)
			params := &composables.Params{
				IP:        ip,
				UserAgent: r.UserAgent(),
				RequestID: w.Header().Get("X-Request-Id"),
			}
			if params.RequestID == "" {
				params.RequestID = r.Header.Get(requestIDHeader)
			}
			next.ServeHTTP(w, r.WithContext(composables.WithParams(r.Context(), params)))
		})
	}
}
