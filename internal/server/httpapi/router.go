// Package httpapi exposes the service over HTTP: an authenticated owner
// API under /api/v1 and the public share endpoints under /share.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/metrics"
	"github.com/avolkonsky/cloudvault/internal/server/services"
)

// Handler binds the HTTP layer to the application services.
type Handler struct {
	files     *services.FileService
	folders   *services.FolderService
	shares    *services.ShareService
	secretKey []byte
	logger    logging.Logger
}

func NewHandler(files *services.FileService, folders *services.FolderService, shares *services.ShareService,
	secretKey []byte, logger logging.Logger) *Handler {
	return &Handler{
		files:     files,
		folders:   folders,
		shares:    shares,
		secretKey: secretKey,
		logger:    logger,
	}
}

// NewRouter registers all routes and the middleware stack.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(h.logger))
	r.Use(loggingMiddleware(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "ok")
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Post("/files", h.uploadFile)
		r.Get("/files", h.listFiles)
		r.Get("/files/{id}", h.getFile)
		r.Get("/files/{id}/download", h.downloadFile)
		r.Delete("/files/{id}", h.trashFile)

		r.Get("/trash", h.listTrash)
		r.Delete("/trash", h.emptyTrash)
		r.Post("/trash/{id}/restore", h.restoreFile)
		r.Delete("/trash/{id}", h.purgeFile)

		r.Post("/folders", h.createFolder)
		r.Get("/folders", h.listFolders)
		r.Delete("/folders/{id}", h.deleteFolder)

		r.Get("/storage", h.storageInfo)

		r.Post("/shares", h.createShare)
		r.Get("/shares", h.listShares)
		r.Delete("/shares/{id}", h.revokeShare)
		r.Post("/shares/save", h.saveShared)
	})

	r.Route("/share/{code}", func(r chi.Router) {
		r.Get("/", h.shareInfo)
		r.Post("/verify-password", h.verifySharePassword)
		r.Post("/download", h.downloadShared)
	})

	return r
}
