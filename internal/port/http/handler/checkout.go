package handler

import (
	"net/http"
	"strconv"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/go-chi/chi/v5"
)

const defaultReceiptLimit = 20

// CheckoutHandler drives checkout sessions and lists past receipts.
type CheckoutHandler struct {
	views    *service.CartViews
	sessions *service.CheckoutSessions
	builder  service.SelectionBuilder
	catalog  service.ListingCatalog
	journal  repository.JournalRepository
	log      logger.Logger
}

func NewCheckoutHandler(
	views *service.CartViews,
	sessions *service.CheckoutSessions,
	builder service.SelectionBuilder,
	catalog service.ListingCatalog,
	journal repository.JournalRepository,
	log logger.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		views:    views,
		sessions: sessions,
		builder:  builder,
		catalog:  catalog,
		journal:  journal,
		log:      log,
	}
}

type startCheckoutRequest struct {
	From      string `json:"from"`
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutResponse struct {
	ID        string                   `json:"id"`
	State     entity.CheckoutState     `json:"state"`
	Selection entity.PurchaseSelection `json:"selection"`
	Total     string                   `json:"total"`
}

type validateResponse struct {
	Checkout checkoutResponse         `json:"checkout"`
	Result   service.ValidationResult `json:"result"`
}

func newCheckoutResponse(r service.CheckoutReconciler) checkoutResponse {
	sel := r.Selection()
	return checkoutResponse{ID: r.ID(), State: r.State(), Selection: sel, Total: sel.Total().StringFixed(2)}
}

func (h *CheckoutHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req startCheckoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	store, err := h.views.Get(r.Context(), sess)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var selection entity.PurchaseSelection
	switch req.From {
	case "", string(entity.SourceCart):
		cart, err := store.Refresh(r.Context())
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		selection = h.builder.FromCart(cart)
	case string(entity.SourceSingle):
		listing, ok := h.catalog.Get(req.ListingID)
		if !ok {
			if err := h.catalog.Refresh(r.Context()); err != nil {
				writeError(w, h.log, err)
				return
			}
			listing, ok = h.catalog.Get(req.ListingID)
		}
		if !ok {
			writeError(w, h.log, apperr.ValidationErr("checkout.start", service.ErrListingNotFound))
			return
		}
		selection = h.builder.FromSingleListing(sess.CartID, listing, req.Quantity)
	default:
		writeError(w, h.log, apperr.Validation("checkout.start", "from must be cart or listing"))
		return
	}

	if selection.Empty() {
		writeError(w, h.log, apperr.ValidationErr("checkout.start", service.ErrEmptySelection))
		return
	}
	reconciler := h.sessions.Start(sess, selection, store)
	writeJSON(w, h.log, http.StatusCreated, newCheckoutResponse(reconciler))
}

func (h *CheckoutHandler) reconciler(w http.ResponseWriter, r *http.Request) (service.CheckoutReconciler, bool) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return nil, false
	}
	rec, err := h.sessions.Get(sess, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return nil, false
	}
	return rec, true
}

func (h *CheckoutHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.log, http.StatusOK, newCheckoutResponse(rec))
}

func (h *CheckoutHandler) HandleSetLine(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := rec.SetQuantity(chi.URLParam(r, "listingID"), req.Quantity); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, newCheckoutResponse(rec))
}

func (h *CheckoutHandler) HandleRemoveLine(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r)
	if !ok {
		return
	}
	if err := rec.RemoveLine(chi.URLParam(r, "listingID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, newCheckoutResponse(rec))
}

func (h *CheckoutHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r)
	if !ok {
		return
	}
	result, err := rec.Validate(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, validateResponse{Checkout: newCheckoutResponse(rec), Result: result})
}

func (h *CheckoutHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.reconciler(w, r)
	if !ok {
		return
	}
	receipt, err := rec.Commit(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.sessions.Drop(rec.ID())
	writeJSON(w, h.log, http.StatusOK, receipt)
}

func (h *CheckoutHandler) HandleReceipts(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	limit := int64(defaultReceiptLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, h.log, apperr.Validation("receipts.list", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	receipts, err := h.journal.ReceiptsByCustomer(r.Context(), sess.CustomerID, limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, receipts)
}
