// internal/api/handlers_submissions.go
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agency-crm/internal/service"
)

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	sub, err := s.submissions.Create(r.Context(), in, clientIP(r), r.UserAgent())
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleTrackSubmission(w http.ResponseWriter, r *http.Request) {
	status, err := s.submissions.Track(r.Context(), r.URL.Query().Get("phone"), r.URL.Query().Get("email"))
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	subs, err := s.submissions.List(r.Context(), q.Get("stage"), limit, offset)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleValidateSubmission(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	sub, err := s.submissions.Validate(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleConfirmCall(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	claims := claimsFrom(r.Context())
	sub, err := s.submissions.ConfirmCall(r.Context(), chi.URLParam(r, "id"), claims.UserID, in.Notes)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleConvertSubmission(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	client, err := s.submissions.ConvertToClient(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if err := s.submissions.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondMessage(w, http.StatusOK, "Submission deleted")
}
