package handler

import (
	"net/http"
	"strconv"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/go-chi/chi/v5"
)

// MarketHandler serves the shop catalogue and farmer listings.
type MarketHandler struct {
	catalog service.ListingCatalog
	ledger  service.InventoryLedger
	log     logger.Logger
}

func NewMarketHandler(catalog service.ListingCatalog, ledger service.InventoryLedger, log logger.Logger) *MarketHandler {
	return &MarketHandler{catalog: catalog, ledger: ledger, log: log}
}

type createListingRequest struct {
	ProductID string  `json:"product_id"`
	Weight    float64 `json:"weight"`
	Stock     int     `json:"stock"`
	Discount  float64 `json:"discount"`
}

type quoteResponse struct {
	Crop      string `json:"crop"`
	BasePrice string `json:"base_price"`
	UnitPrice string `json:"unit_price"`
}

func (h *MarketHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ListingFilter{
		Search:   q.Get("search"),
		CropType: q.Get("crop"),
		Sort:     service.ParseSortOrder(q.Get("sort")),
	}
	var err error
	if filter.MinPrice, err = floatParam(q.Get("min_price")); err != nil {
		writeError(w, h.log, apperr.Validation("market.list", "min_price must be a number"))
		return
	}
	if filter.MaxPrice, err = floatParam(q.Get("max_price")); err != nil {
		writeError(w, h.log, apperr.Validation("market.list", "max_price must be a number"))
		return
	}

	if err := h.catalog.Refresh(r.Context()); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, h.catalog.List(filter))
}

func (h *MarketHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	listings, err := h.catalog.OwnerListings(r.Context(), sess)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, listings)
}

func (h *MarketHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req createListingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, h.log, apperr.Validation("market.create", "product_id is required"))
		return
	}
	product, err := h.ledger.Product(r.Context(), sess, req.ProductID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	listing, err := h.catalog.CreateListing(r.Context(), sess, *product, req.Weight, req.Stock, req.Discount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, listing)
}

func (h *MarketHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.catalog.DeleteListing(r.Context(), sess, id); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleQuote previews the unit price a listing would get.
func (h *MarketHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crop := q.Get("crop")
	weight, err := floatParam(q.Get("weight"))
	if err != nil || crop == "" || weight <= 0 {
		writeError(w, h.log, apperr.Validation("market.quote", "crop and a positive weight are required"))
		return
	}
	discount, err := floatParam(q.Get("discount"))
	if err != nil || discount < 0 || discount > 100 {
		writeError(w, h.log, apperr.Validation("market.quote", "discount must be between 0 and 100"))
		return
	}
	writeJSON(w, h.log, http.StatusOK, quoteResponse{
		Crop:      crop,
		BasePrice: h.catalog.PriceFor(r.Context(), crop).StringFixed(2),
		UnitPrice: h.catalog.QuotePrice(r.Context(), crop, weight, discount).StringFixed(2),
	})
}

func floatParam(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
