package router

import (
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/port/http/handler"
	"github.com/TeninChristopher/SAM/internal/port/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Inventory *handler.InventoryHandler
	Market    *handler.MarketHandler
	Cart      *handler.CartHandler
	Checkout  *handler.CheckoutHandler
}

// New builds the storefront router.
func New(h Handlers, auth Auth, log logger.Logger) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(chimiddleware.Recoverer)
	mux.Use(middleware.Logger(log))

	SetupHealthRoutes(mux)
	SetupInventoryRoutes(mux, h.Inventory, auth)
	SetupMarketRoutes(mux, h.Market, auth)
	SetupCartRoutes(mux, h.Cart, auth)
	SetupCheckoutRoutes(mux, h.Checkout, auth)
	return mux
}
