// internal/api/handlers_payments.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/service"
)

func (s *Server) handleGeneratePaymentLink(w http.ResponseWriter, r *http.Request) {
	var in service.GenerateLinkInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	claims := claimsFrom(r.Context())
	link, err := s.payments.GenerateLink(r.Context(), chi.URLParam(r, "id"), claims.UserID, in)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusCreated, link)
}

func (s *Server) handleValidatePaymentLink(w http.ResponseWriter, r *http.Request) {
	ctx, err := s.payments.ValidateLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, ctx)
}

func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.Storage.MaxFileSize); err != nil {
		respondError(w, apperrors.NewValidationError("Malformed upload", err.Error()), s.cfg.App.IsProduction(), s.log)
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		respondError(w, apperrors.NewValidationError("Receipt file is required", ""), s.cfg.App.IsProduction(), s.log)
		return
	}
	defer file.Close()

	link, err := s.payments.UploadReceipt(r.Context(), chi.URLParam(r, "token"),
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, link)
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	link, err := s.payments.Confirm(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, link)
}

func (s *Server) handleRejectPayment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	claims := claimsFrom(r.Context())
	link, err := s.payments.Reject(r.Context(), chi.URLParam(r, "id"), claims.UserID, in.Reason)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, link)
}

func (s *Server) handleDeactivatePaymentLink(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if err := s.payments.Deactivate(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondMessage(w, http.StatusOK, "Payment link deactivated")
}
