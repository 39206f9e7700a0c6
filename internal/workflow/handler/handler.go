// Package handler exposes the workflow over HTTP. It is a thin layer: decode,
// validate shape, delegate to the controller, encode the snapshot.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"adresboek/internal/formstate"
	"adresboek/internal/platform/middleware"
	"adresboek/internal/transport/http/shared"
	"adresboek/internal/workflow"
	dErrors "adresboek/pkg/domain-errors"
)

// Service defines the workflow operations the handler delegates to.
type Service interface {
	StartSession(ctx context.Context) (workflow.Snapshot, error)
	Snapshot(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	SetSearchField(ctx context.Context, sessionID, name, text string) (workflow.Snapshot, error)
	SetDetailsField(ctx context.Context, sessionID, name, text string) (workflow.Snapshot, error)
	SubmitSearch(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	SelectCandidate(ctx context.Context, sessionID, candidateID string) (workflow.Snapshot, error)
	SubmitDetails(ctx context.Context, sessionID string) (workflow.Snapshot, error)
	ClearAll(ctx context.Context, sessionID string) (workflow.Snapshot, error)
}

// TokenIssuer mints the bearer token handed out when a session starts.
type TokenIssuer interface {
	GenerateSessionToken(sessionID string, expiresIn time.Duration) (string, error)
}

// Handler handles workflow session endpoints.
type Handler struct {
	logger     *slog.Logger
	workflow   Service
	tokens     TokenIssuer
	validator  middleware.TokenValidator
	sessionTTL time.Duration
}

// New creates a new workflow Handler.
func New(
	svc Service,
	tokens TokenIssuer,
	validator middleware.TokenValidator,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:     logger,
		workflow:   svc,
		tokens:     tokens,
		validator:  validator,
		sessionTTL: sessionTTL,
	}
}

// Register registers the session routes with the chi router. Starting a
// session is the only unauthenticated operation; everything else requires the
// bearer token it returns.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/session", h.handleStartSession)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.validator, h.logger))
		r.Get("/v1/session", h.handleSnapshot)
		r.Get("/v1/session/search/fields", h.handleSearchDescriptors)
		r.Post("/v1/session/search/fields", h.handleSetSearchField)
		r.Post("/v1/session/search", h.handleSubmitSearch)
		r.Post("/v1/session/select", h.handleSelectCandidate)
		r.Get("/v1/session/details/fields", h.handleDetailDescriptors)
		r.Post("/v1/session/details/fields", h.handleSetDetailsField)
		r.Post("/v1/session/details", h.handleSubmitDetails)
		r.Post("/v1/session/clear", h.handleClearAll)
	})
}

type startSessionResponse struct {
	Token string            `json:"token"`
	State workflow.Snapshot `json:"state"`
}

type setFieldRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type selectRequest struct {
	CandidateID string `json:"candidate_id"`
}

type descriptorsResponse struct {
	Fields []formstate.Descriptor `json:"fields"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.workflow.StartSession(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start session",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to start session"))
		return
	}

	token, err := h.tokens.GenerateSessionToken(snap.SessionID, h.sessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to start session"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, startSessionResponse{Token: token, State: snap})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
		return h.workflow.Snapshot(ctx, sessionID)
	})
}

func (h *Handler) handleSearchDescriptors(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, descriptorsResponse{Fields: workflow.SearchDescriptors()})
}

func (h *Handler) handleDetailDescriptors(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, descriptorsResponse{Fields: workflow.DetailDescriptors()})
}

func (h *Handler) handleSetSearchField(w http.ResponseWriter, r *http.Request) {
	h.handleSetField(w, r, h.workflow.SetSearchField)
}

func (h *Handler) handleSetDetailsField(w http.ResponseWriter, r *http.Request) {
	h.handleSetField(w, r, h.workflow.SetDetailsField)
}

func (h *Handler) handleSetField(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, sessionID, name, text string) (workflow.Snapshot, error),
) {
	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Name, "1", "64") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "field name is required"))
		return
	}
	if !govalidator.StringLength(req.Value, "0", "255") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "field value too long"))
		return
	}

	h.respond(w, r, func(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
		return set(ctx, sessionID, req.Name, req.Value)
	})
}

func (h *Handler) handleSubmitSearch(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
		return h.workflow.SubmitSearch(ctx, sessionID)
	})
}

func (h *Handler) handleSelectCandidate(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.CandidateID, "1", "128") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "candidate_id is required"))
		return
	}

	h.respond(w, r, func(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
		return h.workflow.SelectCandidate(ctx, sessionID, req.CandidateID)
	})
}

func (h *Handler) handleSubmitDetails(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
		return h.workflow.SubmitDetails(ctx, sessionID)
	})
}

func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
		return h.workflow.ClearAll(ctx, sessionID)
	})
}

// respond runs one controller transition for the authenticated session and
// writes the resulting snapshot. Rejected transitions are not HTTP errors;
// they come back as a 200 snapshot carrying the error overlay.
func (h *Handler) respond(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, sessionID string) (workflow.Snapshot, error),
) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)
	if sessionID == "" {
		h.logger.ErrorContext(ctx, "session ID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	snap, err := op(ctx, sessionID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "workflow transition failed",
			"request_id", middleware.GetRequestID(ctx),
			"session_id", sessionID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "workflow transition failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}
