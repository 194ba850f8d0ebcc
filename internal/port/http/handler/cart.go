package handler

import (
	"context"
	"net/http"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/go-chi/chi/v5"
)

// CartHandler serves the customer's cart through its shared view.
type CartHandler struct {
	views *service.CartViews
	log   logger.Logger
}

func NewCartHandler(views *service.CartViews, log logger.Logger) *CartHandler {
	return &CartHandler{views: views, log: log}
}

type cartResponse struct {
	Cart         *entity.Cart      `json:"cart"`
	ValidItems   []entity.CartItem `json:"valid_items"`
	InvalidItems []entity.CartItem `json:"invalid_items"`
	ValidTotal   string            `json:"valid_total"`
}

func newCartResponse(cart *entity.Cart) cartResponse {
	return cartResponse{
		Cart:         cart,
		ValidItems:   cart.ValidItems(),
		InvalidItems: cart.InvalidItems(),
		ValidTotal:   cart.ValidTotal().StringFixed(2),
	}
}

type addItemRequest struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartMutation func(ctx context.Context, store service.CartStore) (*entity.Cart, error)

func (h *CartHandler) serve(w http.ResponseWriter, r *http.Request, status int, mutate cartMutation) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	store, err := h.views.Get(r.Context(), sess)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	cart, err := mutate(r.Context(), store)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, status, newCartResponse(cart))
}

func (h *CartHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store service.CartStore) (*entity.Cart, error) {
		return store.Refresh(ctx)
	})
}

func (h *CartHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	h.serve(w, r, http.StatusCreated, func(ctx context.Context, store service.CartStore) (*entity.Cart, error) {
		return store.AddItem(ctx, req.ListingID, req.Quantity)
	})
}

func (h *CartHandler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	id := chi.URLParam(r, "id")
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store service.CartStore) (*entity.Cart, error) {
		return store.SetQuantity(ctx, id, req.Quantity)
	})
}

func (h *CartHandler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store service.CartStore) (*entity.Cart, error) {
		return store.Increment(ctx, id)
	})
}

func (h *CartHandler) HandleDecrement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store service.CartStore) (*entity.Cart, error) {
		return store.Decrement(ctx, id)
	})
}

func (h *CartHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store service.CartStore) (*entity.Cart, error) {
		return store.Remove(ctx, id)
	})
}
