package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sp3dr4/snip/internal/application"
	"github.com/sp3dr4/snip/internal/domain"
	"github.com/sp3dr4/snip/internal/pkg/logging"
)

type Handlers struct {
	service   *application.LinkService
	health    *application.HealthReporter
	repo      domain.LinkRepository
	listLimit int
}

func NewHandlers(service *application.LinkService, health *application.HealthReporter, repo domain.LinkRepository, listLimit int) *Handlers {
	return &Handlers{
		service:   service,
		health:    health,
		repo:      repo,
		listLimit: listLimit,
	}
}

// HandleHealth handles the liveness endpoint.
//
//	@Summary		Health check endpoint
//	@Description	Check if the service is running
//	@Tags			health
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// HandleReady handles the readiness check endpoint.
//
//	@Summary		Readiness check endpoint
//	@Description	Check if the service is ready to serve requests (includes database connectivity)
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	object{status=string,timestamp=string}	"Service is ready"
//	@Failure		503	{object}	ErrorResponse							"Service is not ready"
//	@Router			/ready [get]
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.HealthCheck(ctx); err != nil {
		logging.FromContext(r.Context()).Error("Readiness check failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Service not ready: database unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleHealthz reports store and cache connectivity.
//
//	@Summary		Dependency health report
//	@Description	Report database and cache connectivity independently. Only a failure of the reporter itself returns 503.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	application.HealthReport
//	@Failure		503	{object}	application.HealthReport
//	@Router			/healthz [get]
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	report := h.health.Report(r.Context())

	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, report)
}

// HandleCreateLink handles the link creation endpoint.
//
//	@Summary		Create a short link
//	@Description	Shorten a URL. Without a custom code an existing link for the same URL is returned.
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			request	body		application.CreateLinkRequest	true	"URL to shorten"
//	@Success		201		{object}	application.LinkResponse		"Link created"
//	@Success		200		{object}	application.LinkResponse		"Existing link for the URL"
//	@Failure		400		{object}	ValidationErrorResponse			"Invalid request or validation error"
//	@Failure		409		{object}	ErrorResponse					"Custom code already exists"
//	@Failure		500		{object}	ErrorResponse					"Internal error"
//	@Router			/api/links [post]
func (h *Handlers) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var req application.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.service.CreateLink(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, logger, err, "Failed to create link")
		return
	}

	status := http.StatusOK
	if response.Created {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, response)
}

// HandleListLinks handles the link listing endpoint.
//
//	@Summary		List links
//	@Description	List links newest first
//	@Tags			links
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of links"
//	@Success		200		{array}		application.LinkResponse
//	@Failure		400		{object}	ValidationErrorResponse
//	@Router			/api/links [get]
func (h *Handlers) HandleListLinks(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	limit := h.listLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			handleValidationError(w, map[string]string{"limit": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	links, err := h.service.ListLinks(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, logger, err, "Failed to list links")
		return
	}
	respondWithJSON(w, http.StatusOK, links)
}

// HandleGetLink handles the link stats endpoint.
//
//	@Summary		Get link stats
//	@Description	Get a link and its click statistics
//	@Tags			links
//	@Produce		json
//	@Param			code	path		string	true	"Short code"
//	@Success		200		{object}	application.LinkResponse
//	@Failure		404		{object}	ErrorResponse	"Link not found"
//	@Router			/api/links/{code} [get]
func (h *Handlers) HandleGetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.GetLink(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.handleServiceError(w, logging.FromContext(r.Context()), err, "Failed to get link")
		return
	}
	respondWithJSON(w, http.StatusOK, link)
}

// HandleDeleteLink handles the link deletion endpoint.
//
//	@Summary		Delete a link
//	@Description	Delete a link and evict its cache entries
//	@Tags			links
//	@Produce		json
//	@Param			code	path		string	true	"Short code"
//	@Success		200		{object}	object{message=string,code=string}
//	@Failure		404		{object}	ErrorResponse	"Link not found"
//	@Router			/api/links/{code} [delete]
func (h *Handlers) HandleDeleteLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.service.DeleteLink(r.Context(), code); err != nil {
		h.handleServiceError(w, logging.FromContext(r.Context()), err, "Failed to delete link")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Link deleted",
		"code":    code,
	})
}

// HandleRedirect handles the redirect endpoint.
//
//	@Summary		Redirect to original URL
//	@Description	Redirect to the original URL using the short code
//	@Tags			links
//	@Param			code	path	string	true	"Short code"
//	@Success		302		"Redirect to original URL"
//	@Failure		404		{object}	ErrorResponse	"Short URL not found"
//	@Router			/{code} [get]
func (h *Handlers) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	redirect, err := h.service.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.handleServiceError(w, logger, err, "Failed to resolve link")
		return
	}

	logger.Info("Redirecting", "code", redirect.Code, "target_url", redirect.TargetURL, "cache_hit", redirect.CacheHit)
	http.Redirect(w, r, redirect.TargetURL, http.StatusFound)
}

// HandleRedirectHead answers HEAD like HandleRedirect without counting a click.
//
//	@Summary		Check a short code
//	@Description	Answer with the redirect target without counting a click
//	@Tags			links
//	@Param			code	path	string	true	"Short code"
//	@Success		302		"Redirect to original URL"
//	@Failure		404		"Short URL not found"
//	@Router			/{code} [head]
func (h *Handlers) HandleRedirectHead(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.service.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.handleServiceError(w, logging.FromContext(r.Context()), err, "Failed to resolve link")
		return
	}

	w.Header().Set("Location", redirect.TargetURL)
	w.WriteHeader(http.StatusFound)
}

func (h *Handlers) handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error, message string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		handleValidationError(w, validationErr.Details)
	case errors.Is(err, domain.ErrCodeConflict):
		respondWithError(w, http.StatusConflict, "Short code already exists")
	case errors.Is(err, domain.ErrLinkNotFound):
		respondWithError(w, http.StatusNotFound, "Short URL not found")
	default:
		logger.Error(message, "error", err)
		respondWithError(w, http.StatusInternalServerError, message)
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     map[string]string `json:"error"`
	Timestamp string            `json:"timestamp" example:"2024-01-31T12:00:00Z"`
}

// ValidationErrorResponse represents a validation error response.
type ValidationErrorResponse struct {
	Details map[string]string `json:"details"`
	Error   string            `json:"error" example:"Validation failed"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{
		Error:     map[string]string{"message": message},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func handleValidationError(w http.ResponseWriter, details map[string]string) {
	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: details,
	})
}
