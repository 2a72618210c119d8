package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/procurebot/backend/internal/domain"
	"github.com/procurebot/backend/internal/store"
)

// RegisterRoutes registers the negotiation REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.root)
	r.Get("/api/health", h.health)

	r.Route("/api/negotiations", func(r chi.Router) {
		r.Post("/", h.createNegotiation)
		r.Post("/by-buyer", h.listByBuyer)
		r.Get("/code-exists/{email}", h.codeExists)
		r.Get("/{id}", h.getNegotiation)
		r.Put("/{id}", h.updateNegotiation)
		r.Get("/{id}/export-pdf", h.exportPDF)
		r.Delete("/{id}", h.deleteNegotiation)
	})
}

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ProcureBot backend is running!")); err != nil {
		slog.Debug("Failed to write root banner", "error", err)
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":      "OK",
		"message":     "API is working correctly",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
	})
}

func negotiationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type createRequest struct {
	Name            string                `json:"name"`
	BuyerEmail      string                `json:"buyer_email"`
	SupplierEmail   string                `json:"supplier_email"`
	TargetDetails   *domain.TargetDetails `json:"target_details"`
	DashboardCode   string                `json:"dashboard_code"`
	NegotiationMode string                `json:"negotiation_mode"`
}

func (h *Handler) createNegotiation(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.repo.Create(r.Context(), &domain.Negotiation{
		Name:            req.Name,
		BuyerEmail:      req.BuyerEmail,
		SupplierEmail:   req.SupplierEmail,
		TargetDetails:   req.TargetDetails,
		DashboardCode:   req.DashboardCode,
		NegotiationMode: req.NegotiationMode,
	})
	if err != nil {
		slog.Error("Failed to create negotiation", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to create negotiation")
		return
	}

	JSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) getNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := negotiationID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	neg, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		slog.Error("Failed to fetch negotiation", "error", err, "id", id)
		Error(w, http.StatusInternalServerError, "Failed to fetch negotiation")
		return
	}

	JSON(w, http.StatusOK, neg)
}

type updateRequest struct {
	ChatHistory         []domain.ChatMessage `json:"chat_history"`
	Status              string               `json:"status"`
	FinalAgreementTerms map[string]string    `json:"final_agreement_terms,omitempty"`
}

func (h *Handler) updateNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := negotiationID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.UpdateChat(r.Context(), id, req.ChatHistory, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "Not found")
			return
		}
		slog.Error("Failed to update negotiation", "error", err, "id", id)
		Error(w, http.StatusInternalServerError, "Failed to update negotiation")
		return
	}

	if req.FinalAgreementTerms != nil {
		if err := h.repo.SetFinalAgreementTerms(r.Context(), id, req.FinalAgreementTerms); err != nil {
			slog.Error("Failed to store final agreement terms", "error", err, "id", id)
			Error(w, http.StatusInternalServerError, "Failed to update negotiation")
			return
		}
	}

	JSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	id, err := negotiationID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	neg, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "Negotiation not found")
		return
	}
	if err != nil {
		slog.Error("Failed to fetch negotiation for export", "error", err, "id", id)
		Error(w, http.StatusInternalServerError, "Failed to fetch negotiation")
		return
	}

	doc, err := h.exporter.Render(r.Context(), neg)
	if err != nil {
		slog.Error("Failed to render negotiation PDF", "error", err, "id", id)
		Error(w, http.StatusInternalServerError, "Could not generate PDF")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=negotiation_%d.pdf", id))
	w.Header().Set("Content-Type", "application/pdf")
	if _, err := w.Write(doc); err != nil {
		slog.Debug("Failed to write PDF response", "error", err, "id", id)
	}
}

type ownerRequest struct {
	Email         string `json:"email"`
	DashboardCode string `json:"dashboard_code"`
}

func (h *Handler) listByBuyer(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summaries, err := h.repo.ListByOwner(r.Context(), req.Email, req.DashboardCode)
	if err != nil {
		slog.Error("Failed to list negotiations", "error", err, "email", req.Email)
		Error(w, http.StatusInternalServerError, "Failed to fetch negotiations")
		return
	}

	JSON(w, http.StatusOK, summaries)
}

func (h *Handler) codeExists(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	exists, err := h.repo.AccessCodeExists(r.Context(), email)
	if err != nil {
		slog.Error("Failed to check dashboard code", "error", err, "email", email)
		Error(w, http.StatusInternalServerError, "Error during lookup.")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handler) deleteNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := negotiationID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	var req ownerRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.Delete(r.Context(), id, req.Email, req.DashboardCode); err != nil {
		if errors.Is(err, store.ErrUnauthorized) {
			Error(w, http.StatusForbidden, "Unauthorized or negotiation not found")
			return
		}
		slog.Error("Failed to delete negotiation", "error", err, "id", id)
		Error(w, http.StatusInternalServerError, "Failed to delete negotiation")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"deleted": true, "id": id})
}
