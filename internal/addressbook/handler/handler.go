// Package handler exposes the address book over HTTP for rendering surfaces
// that list, prune, or bulk-restore the committed records.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"adresboek/internal/audit"
	"adresboek/internal/domain"
	"adresboek/internal/platform/middleware"
	"adresboek/internal/transport/http/shared"
	dErrors "adresboek/pkg/domain-errors"
)

// Store defines the address-book operations the handler delegates to.
type Store interface {
	Remove(ctx context.Context, id string) (bool, error)
	ReplaceAll(ctx context.Context, records []domain.Record) error
	List(ctx context.Context) ([]domain.Record, error)
}

// Handler handles address-book endpoints.
type Handler struct {
	logger    *slog.Logger
	book      Store
	audit     *audit.Publisher
	validator middleware.TokenValidator
}

// New creates a new address-book Handler.
func New(book Store, validator middleware.TokenValidator, publisher *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		book:      book,
		audit:     publisher,
		validator: validator,
	}
}

// Register registers the address-book routes with the chi router. All routes
// require a session token; the book is shared, but only workflow participants
// may see it.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.validator, h.logger))
		r.Get("/v1/addressbook", h.handleList)
		r.Delete("/v1/addressbook/{id}", h.handleRemove)
		r.Put("/v1/addressbook", h.handleReplaceAll)
	})
}

type listResponse struct {
	Records []domain.Record `json:"records"`
}

type replaceRequest struct {
	Records []domain.Record `json:"records"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.book.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list address book",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list address book"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Records: records})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if !govalidator.StringLength(id, "1", "128") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "record id is required"))
		return
	}

	removed, err := h.book.Remove(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to remove record",
			"request_id", middleware.GetRequestID(ctx),
			"record_id", id,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to remove record"))
		return
	}

	// Absent identifiers are a no-op: still 204, but no audit event.
	if removed {
		h.audit.Emit(audit.Event{
			Action:    audit.ActionRecordRemoved,
			RecordID:  id,
			SessionID: middleware.GetSessionID(ctx),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReplaceAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	for _, record := range req.Records {
		if !record.Valid() {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "records need an id, first name and last name"))
			return
		}
	}

	if err := h.book.ReplaceAll(ctx, req.Records); err != nil {
		h.logger.ErrorContext(ctx, "failed to replace address book",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to replace address book"))
		return
	}

	h.audit.Emit(audit.Event{
		Action:    audit.ActionBookReplaced,
		SessionID: middleware.GetSessionID(ctx),
		RequestID: middleware.GetRequestID(ctx),
	})
	w.WriteHeader(http.StatusNoContent)
}
