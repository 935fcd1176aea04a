package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

var codeStatus = map[string]int{
	"AUTHZ_FORBIDDEN": http.StatusForbidden,
}

// RegisterErrorStatus maps a serrors code to the HTTP status WriteServiceError uses for it.
func RegisterErrorStatus(code string, status int) {
	codeStatus[code] = status
}

// WriteServiceError renders err as an ErrorEnvelope. Coded errors keep their code,
// anything else is logged and reported as INTERNAL.
func WriteServiceError(w http.ResponseWriter, logger *logrus.Entry, err error) {
	var verr serrors.ValidationErrors
	if errors.As(err, &verr) {
		_ = WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request", verr)
		return
	}
	var base *serrors.BaseError
	if errors.As(err, &base) {
		status, ok := codeStatus[base.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		_ = WriteError(w, status, base.Code, err.Error(), base.TemplateData)
		return
	}
	if logger != nil {
		logger.WithError(err).Error("request failed")
	}
	_ = WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
