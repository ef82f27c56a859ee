// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"

	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/common/logger"
)

// envelope is the uniform response shape for every JSON endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message})
}

// respondError maps an error to its HTTP status and the public-safe message.
func respondError(w http.ResponseWriter, err error, production bool, log logger.Logger) {
	appErr := apperrors.FromError(err)

	if appErr.HTTPStatus >= 500 {
		log.Error("request failed", map[string]interface{}{
			"code":    string(appErr.Code),
			"message": appErr.Message,
			"details": appErr.Details,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Message: appErr.PublicMessage(production),
	})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("Malformed request body", err.Error())
	}
	return nil
}
