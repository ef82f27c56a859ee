// internal/api/handlers_documents.go
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/service"
)

func (s *Server) handleGenerateDocumentLink(w http.ResponseWriter, r *http.Request) {
	var in service.GenerateDocLinkInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	claims := claimsFrom(r.Context())
	link, err := s.documents.GenerateLink(r.Context(), chi.URLParam(r, "id"), claims.UserID, in)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusCreated, link)
}

func (s *Server) handleValidateDocumentLink(w http.ResponseWriter, r *http.Request) {
	ctx, err := s.documents.ValidateLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, ctx)
}

// handleUploadDocuments accepts a multipart batch. File parts are named
// "documents" (or "documents[]"); "documentTypes" carries one type per file
// as a JSON array or repeated values, or a single type applied to all.
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.Storage.MaxFileSize); err != nil {
		respondError(w, apperrors.NewValidationError("Malformed upload", err.Error()), s.cfg.App.IsProduction(), s.log)
		return
	}

	parts := r.MultipartForm.File["documents"]
	if len(parts) == 0 {
		parts = r.MultipartForm.File["documents[]"]
	}
	if len(parts) == 0 {
		respondError(w, apperrors.NewValidationError("No files in upload", ""), s.cfg.App.IsProduction(), s.log)
		return
	}

	types := r.MultipartForm.Value["documentTypes"]
	if len(types) == 1 && strings.HasPrefix(strings.TrimSpace(types[0]), "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(types[0]), &decoded); err == nil {
			types = decoded
		}
	}
	docType := func(i int) string {
		switch {
		case len(types) > i:
			return types[i]
		case len(types) == 1:
			return types[0]
		default:
			return "other"
		}
	}

	var files []service.UploadFile
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	for i, part := range parts {
		f, err := part.Open()
		if err != nil {
			respondError(w, apperrors.NewValidationError("Unreadable file part", part.Filename), s.cfg.App.IsProduction(), s.log)
			return
		}
		closers = append(closers, f)
		files = append(files, service.UploadFile{
			OriginalName: part.Filename,
			ContentType:  part.Header.Get("Content-Type"),
			Size:         part.Size,
			DocumentType: docType(i),
			Reader:       f,
		})
	}

	docs, err := s.documents.Upload(r.Context(), chi.URLParam(r, "token"), files)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusCreated, docs)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, stats, err := s.documents.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"stats":     stats,
	})
}

func (s *Server) handleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	doc, err := s.documents.Verify(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRejectDocument(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	claims := claimsFrom(r.Context())
	doc, err := s.documents.Reject(r.Context(), chi.URLParam(r, "id"), claims.UserID, in.Reason)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRequestDocumentReplacement(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	claims := claimsFrom(r.Context())
	doc, err := s.documents.RequestReplacement(r.Context(), chi.URLParam(r, "id"), claims.UserID, in.Reason)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, rc, err := s.documents.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	defer rc.Close()

	contentType := doc.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.OriginalName+`"`)
	_, _ = io.Copy(w, rc)
}

func (s *Server) handleDeactivateDocumentLink(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if err := s.documents.Deactivate(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondMessage(w, http.StatusOK, "Upload link deactivated")
}
