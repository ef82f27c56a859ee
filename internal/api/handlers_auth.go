// internal/api/handlers_auth.go
package api

import "net/http"

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	result, err := s.auth.Login(r.Context(), in.Email, in.Password, clientIP(r))
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
