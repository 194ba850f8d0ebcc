package router

import (
	"net/http"

	"github.com/TeninChristopher/SAM/internal/port/http/handler"
	"github.com/go-chi/chi/v5"
)

// Auth is the middleware guarding every /api route.
type Auth func(http.Handler) http.Handler

func SetupHealthRoutes(mux *chi.Mux) {
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

// SetupInventoryRoutes wires the farmer's product routes.
func SetupInventoryRoutes(mux *chi.Mux, h *handler.InventoryHandler, auth Auth) {
	mux.Group(func(r chi.Router) {
		r.Use(auth)

		r.Get("/api/products", h.HandleListProducts)
		r.Post("/api/products", h.HandleUpsertProduct)
		r.Post("/api/products/import", h.HandleImportProducts)
	})
}

func SetupMarketRoutes(mux *chi.Mux, h *handler.MarketHandler, auth Auth) {
	mux.Group(func(r chi.Router) {
		r.Use(auth)

		r.Get("/api/market", h.HandleList)
		r.Get("/api/market/mine", h.HandleMine)
		r.Get("/api/market/quote", h.HandleQuote)
		r.Post("/api/market", h.HandleCreate)
		r.Delete("/api/market/{id}", h.HandleDelete)
	})
}

func SetupCartRoutes(mux *chi.Mux, h *handler.CartHandler, auth Auth) {
	mux.Group(func(r chi.Router) {
		r.Use(auth)

		r.Get("/api/cart", h.HandleGetCart)
		r.Post("/api/cart/items", h.HandleAddItem)
		r.Patch("/api/cart/items/{id}", h.HandleSetQuantity)
		r.Post("/api/cart/items/{id}/increment", h.HandleIncrement)
		r.Post("/api/cart/items/{id}/decrement", h.HandleDecrement)
		r.Delete("/api/cart/items/{id}", h.HandleRemoveItem)
	})
}

func SetupCheckoutRoutes(mux *chi.Mux, h *handler.CheckoutHandler, auth Auth) {
	mux.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/api/checkout", h.HandleStart)
		r.Get("/api/checkout/{id}", h.HandleGet)
		r.Patch("/api/checkout/{id}/lines/{listingID}", h.HandleSetLine)
		r.Delete("/api/checkout/{id}/lines/{listingID}", h.HandleRemoveLine)
		r.Post("/api/checkout/{id}/validate", h.HandleValidate)
		r.Post("/api/checkout/{id}/commit", h.HandleCommit)
		r.Get("/api/receipts", h.HandleReceipts)
	})
}
