// internal/api/server.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"agency-crm/internal/auth"
	"agency-crm/internal/common/config"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/common/observability"
	"agency-crm/internal/models"
	"agency-crm/internal/repository"
	"agency-crm/internal/service"
)

// Server wires services into the HTTP surface.
type Server struct {
	cfg           *config.Config
	log           logger.Logger
	obs           *observability.Observability
	auth          *auth.Service
	submissions   *service.SubmissionService
	payments      *service.PaymentService
	documents     *service.DocumentService
	clients       *service.ClientService
	notifications *repository.NotificationRepo
	users         *repository.UserRepo
	rdb           *redis.Client
	readiness     func() error
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	obs *observability.Observability,
	authSvc *auth.Service,
	submissions *service.SubmissionService,
	payments *service.PaymentService,
	documents *service.DocumentService,
	clients *service.ClientService,
	notifications *repository.NotificationRepo,
	users *repository.UserRepo,
	rdb *redis.Client,
	readiness func() error,
) *Server {
	return &Server{
		cfg:           cfg,
		log:           log,
		obs:           obs,
		auth:          authSvc,
		submissions:   submissions,
		payments:      payments,
		documents:     documents,
		clients:       clients,
		notifications: notifications,
		users:         users,
		rdb:           rdb,
		readiness:     readiness,
	}
}

// Router builds the full route tree: public intake and link endpoints with
// rate limiting, staff endpoints behind JWT.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogging(s.log))
	r.Use(requestMetrics(s.obs))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	limiter := newRateLimiter(s.rdb, s.cfg.RateLimit, s.log)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints: no session, rate limited per IP.
		r.Group(func(r chi.Router) {
			r.Use(limiter.middleware)

			r.Post("/submissions", s.handleCreateSubmission)
			r.Get("/submissions/track", s.handleTrackSubmission)

			r.Get("/payment-links/{token}/validate", s.handleValidatePaymentLink)
			r.Post("/payment-links/{token}/receipt", s.handleUploadReceipt)

			r.Get("/document-links/{token}/validate", s.handleValidateDocumentLink)
			r.Post("/document-links/{token}/documents", s.handleUploadDocuments)
		})

		r.Post("/auth/login", s.handleLogin)

		// Staff endpoints behind JWT.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.auth))

			staffRoles := []string{models.RoleAdmin, models.RoleAgent}

			r.Get("/submissions", s.handleListSubmissions)
			r.Get("/submissions/{id}", s.handleGetSubmission)
			r.With(requireRole(staffRoles...)).Post("/submissions/{id}/validate", s.handleValidateSubmission)
			r.With(requireRole(staffRoles...)).Post("/submissions/{id}/confirm-call", s.handleConfirmCall)
			r.With(requireRole(staffRoles...)).Post("/submissions/{id}/convert", s.handleConvertSubmission)
			r.With(requireRole(models.RoleAdmin)).Delete("/submissions/{id}", s.handleDeleteSubmission)

			r.With(requireRole(staffRoles...)).Post("/submissions/{id}/payment-links", s.handleGeneratePaymentLink)
			r.With(requireRole(staffRoles...)).Post("/payment-links/{id}/confirm", s.handleConfirmPayment)
			r.With(requireRole(staffRoles...)).Post("/payment-links/{id}/reject", s.handleRejectPayment)
			r.With(requireRole(staffRoles...)).Post("/payment-links/{id}/deactivate", s.handleDeactivatePaymentLink)

			r.With(requireRole(staffRoles...)).Post("/submissions/{id}/document-links", s.handleGenerateDocumentLink)
			r.Get("/submissions/{id}/documents", s.handleListDocuments)
			r.With(requireRole(staffRoles...)).Post("/documents/{id}/verify", s.handleVerifyDocument)
			r.With(requireRole(staffRoles...)).Post("/documents/{id}/reject", s.handleRejectDocument)
			r.With(requireRole(staffRoles...)).Post("/documents/{id}/request-replacement", s.handleRequestDocumentReplacement)
			r.Get("/documents/{id}/download", s.handleDownloadDocument)
			r.With(requireRole(staffRoles...)).Post("/document-links/{id}/deactivate", s.handleDeactivateDocumentLink)

			r.Get("/clients", s.handleListClients)
			r.Get("/clients/{id}", s.handleGetClient)
			r.With(requireRole(staffRoles...)).Post("/clients/{id}/notes", s.handleAddClientNote)

			r.Get("/notifications", s.handleListNotifications)
			r.Post("/notifications/{id}/read", s.handleMarkNotificationRead)
			r.Post("/notifications/read-all", s.handleMarkAllNotificationsRead)
			r.Delete("/notifications/{id}", s.handleDeleteNotification)
		})
	})

	return r
}
