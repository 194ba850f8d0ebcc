package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TeninChristopher/SAM/internal/adapter/memory"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/port/http/handler"
	"github.com/TeninChristopher/SAM/internal/port/http/middleware"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testSecret = "test-secret"

type testEnv struct {
	market *fakeMarket
	mux    *chi.Mux
	views  *service.CartViews
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	market := newFakeMarket()
	market.farmers["u-farmer"] = "farmer-1"
	market.customers["u-customer"] = entity.Customer{CustomerID: "cust-1", UserID: "u-customer", CartID: "cart-1"}

	carts := fakeCarts{market}
	journal := fakeJournal{market}
	ledger := service.NewInventoryLedger(fakeProducts{market}, log)
	catalog := service.NewListingCatalog(fakeListings{market}, ledger, fakePrices{}, nil, log, nil, service.CatalogConfig{})
	views := service.NewCartViews(carts, catalog, memory.NewSignalBus(), journal, log, nil)
	sessions := service.NewCheckoutSessions(carts, catalog, journal, log, nil)

	auth := middleware.JWTAuth(testSecret, middleware.NewSessionResolver(fakeAccounts{market}), log)
	mux := New(Handlers{
		Inventory: handler.NewInventoryHandler(ledger, log),
		Market:    handler.NewMarketHandler(catalog, ledger, log),
		Cart:      handler.NewCartHandler(views, log),
		Checkout:  handler.NewCheckoutHandler(views, sessions, service.NewSelectionBuilder(log), catalog, journal, log),
	}, auth, log)

	t.Cleanup(func() { _ = views.Close() })
	return &testEnv{market: market, mux: mux, views: views}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	claims := middleware.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type errorBody struct {
	Error   string                 `json:"error"`
	Details []entity.OverLimitLine `json:"details"`
}

func TestRoutes_Health(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoutes_RequireValidToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart", token(t, "u-stranger", "customer"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_RolesAreEnforced(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products", token(t, "u-customer", "customer"),
		map[string]interface{}{"name": "wheat", "quantity": 10, "reap_date": "2024-05-01"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart", token(t, "u-farmer", "farmer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoutes_FarmerListsProduct(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	env := newTestEnv(t)
	defer func() { _ = env.views.Close() }()
	farmer := token(t, "u-farmer", "farmer")

	rec := env.do(t, http.MethodPost, "/api/products", farmer,
		map[string]interface{}{"name": "wheat", "quantity": 100, "reap_date": "2024-05-01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var product entity.Product
	decodeBody(t, rec, &product)
	assert.NotEmpty(t, product.ID)

	rec = env.do(t, http.MethodPost, "/api/market", farmer,
		map[string]interface{}{"product_id": product.ID, "weight": 5, "stock": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var listing entity.MarketListing
	decodeBody(t, rec, &listing)
	assert.Equal(t, 15.0, listing.UnitPrice)

	// 50 kg are left; 15 units of 5 kg do not fit.
	rec = env.do(t, http.MethodPost, "/api/market", farmer,
		map[string]interface{}{"product_id": product.ID, "weight": 5, "stock": 15})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "Not enough stock. Available: 50.00 kg", body.Error)
	assert.Equal(t, 1, env.market.creates)

	rec = env.do(t, http.MethodGet, "/api/market/mine", farmer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []entity.MarketListing
	decodeBody(t, rec, &mine)
	assert.Len(t, mine, 1)

	rec = env.do(t, http.MethodGet, "/api/market/quote?crop=Wheat&weight=2&discount=50", farmer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quote map[string]string
	decodeBody(t, rec, &quote)
	assert.Equal(t, "3.00", quote["unit_price"])
}

func TestRoutes_ImportProducts(t *testing.T) {
	env := newTestEnv(t)
	csv := strings.Join([]string{
		"name,quantity,reap_date",
		"wheat,100,2024-05-01",
		"maize,abc,2024-05-01",
		"beans,20,2024-06-10",
	}, "\n")

	rec := env.do(t, http.MethodPost, "/api/products/import", token(t, "u-farmer", "farmer"), csv)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result service.BulkResult
	decodeBody(t, rec, &result)
	assert.Equal(t, 2, result.Accepted)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 3, result.Rejected[0].Line)
	assert.Len(t, env.market.products["farmer-1"], 2)
}

func seedCart(m *fakeMarket) {
	m.listings["lA"] = entity.MarketListing{ID: "lA", ProductName: "maize", StockUnits: 5, UnitPrice: 10, DateAdded: time.Now()}
	m.listings["lB"] = entity.MarketListing{ID: "lB", ProductName: "beans", StockUnits: 2, UnitPrice: 7.5, DateAdded: time.Now()}
	cart := entity.NewCart("cart-1")
	cart.Items = append(cart.Items,
		entity.CartItem{CartItemID: "ci-lA", ProductName: "maize", Price: 10, Quantity: 3, Listing: entity.ListingRef{ID: "lA", Stock: 5, Price: 10}},
		entity.CartItem{CartItemID: "ci-lB", ProductName: "beans", Price: 7.5, Quantity: 8, Listing: entity.ListingRef{ID: "lB", Stock: 2, Price: 7.5}},
	)
	m.carts["cart-1"] = cart
}

type cartBody struct {
	ValidItems   []entity.CartItem `json:"valid_items"`
	InvalidItems []entity.CartItem `json:"invalid_items"`
	ValidTotal   string            `json:"valid_total"`
}

type checkoutBody struct {
	ID        string                   `json:"id"`
	State     entity.CheckoutState     `json:"state"`
	Selection entity.PurchaseSelection `json:"selection"`
	Total     string                   `json:"total"`
}

func TestRoutes_CartSplitsValidAndInvalid(t *testing.T) {
	env := newTestEnv(t)
	seedCart(env.market)

	rec := env.do(t, http.MethodGet, "/api/cart", token(t, "u-customer", "customer"), nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body cartBody
	decodeBody(t, rec, &body)
	require.Len(t, body.ValidItems, 1)
	assert.Equal(t, "ci-lA", body.ValidItems[0].CartItemID)
	require.Len(t, body.InvalidItems, 1)
	assert.Equal(t, "ci-lB", body.InvalidItems[0].CartItemID)
	assert.Equal(t, "30.00", body.ValidTotal)
}

func TestRoutes_CartQuantityGuards(t *testing.T) {
	env := newTestEnv(t)
	seedCart(env.market)
	customer := token(t, "u-customer", "customer")

	rec := env.do(t, http.MethodPost, "/api/cart/items/ci-lB/increment", customer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/items/ci-lA/increment", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body cartBody
	decodeBody(t, rec, &body)
	require.Len(t, body.ValidItems, 1)
	assert.Equal(t, 4, body.ValidItems[0].Quantity)
	assert.Equal(t, 4, env.market.carts["cart-1"].Items[0].Quantity)
}

func TestRoutes_CheckoutFromCart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	env := newTestEnv(t)
	defer func() { _ = env.views.Close() }()
	seedCart(env.market)
	customer := token(t, "u-customer", "customer")

	rec := env.do(t, http.MethodPost, "/api/checkout", customer, map[string]string{"from": "cart"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var co checkoutBody
	decodeBody(t, rec, &co)
	require.Len(t, co.Selection.Lines, 1)
	assert.Equal(t, "lA", co.Selection.Lines[0].ListingID)
	assert.Equal(t, "30.00", co.Total)

	// The over-stock beans line is still in the remote cart.
	rec = env.do(t, http.MethodPost, "/api/checkout/"+co.ID+"/commit", customer, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var overStock errorBody
	decodeBody(t, rec, &overStock)
	assert.Equal(t, []entity.OverLimitLine{{ListingID: "lB", ProductName: "beans", Requested: 8, Available: 2}}, overStock.Details)

	rec = env.do(t, http.MethodDelete, "/api/cart/items/ci-lB", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/checkout", customer, map[string]string{"from": "cart"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeBody(t, rec, &co)

	rec = env.do(t, http.MethodPatch, "/api/checkout/"+co.ID+"/lines/lA", customer, map[string]int{"quantity": 6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/checkout/"+co.ID+"/commit", customer, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var refused errorBody
	decodeBody(t, rec, &refused)
	require.Len(t, refused.Details, 1)
	assert.Equal(t, 6, refused.Details[0].Requested)
	assert.Equal(t, 5, refused.Details[0].Available)

	rec = env.do(t, http.MethodPatch, "/api/checkout/"+co.ID+"/lines/lA", customer, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/checkout/"+co.ID+"/commit", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt entity.PurchaseReceipt
	decodeBody(t, rec, &receipt)
	assert.Equal(t, "cust-1", receipt.CustomerID)
	assert.Equal(t, 20.0, receipt.Total)
	assert.Equal(t, 3, env.market.listings["lA"].StockUnits)
	assert.Empty(t, env.market.carts["cart-1"].Items)

	rec = env.do(t, http.MethodGet, "/api/checkout/"+co.ID, customer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/receipts", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var receipts []entity.PurchaseReceipt
	decodeBody(t, rec, &receipts)
	assert.Len(t, receipts, 1)
}

func TestRoutes_BuyNow(t *testing.T) {
	env := newTestEnv(t)
	seedCart(env.market)
	env.market.carts["cart-1"].Items = env.market.carts["cart-1"].Items[:0]
	customer := token(t, "u-customer", "customer")

	rec := env.do(t, http.MethodPost, "/api/checkout", customer,
		map[string]interface{}{"from": "listing", "listing_id": "lB", "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var co checkoutBody
	decodeBody(t, rec, &co)
	assert.Equal(t, entity.SourceSingle, co.Selection.Source)

	rec = env.do(t, http.MethodPost, "/api/checkout/"+co.ID+"/commit", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, env.market.listings["lB"].StockUnits)

	rec = env.do(t, http.MethodPost, "/api/checkout", customer,
		map[string]interface{}{"from": "listing", "listing_id": "missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_CheckoutIsScopedToCustomer(t *testing.T) {
	env := newTestEnv(t)
	seedCart(env.market)
	env.market.customers["u-other"] = entity.Customer{CustomerID: "cust-2", UserID: "u-other", CartID: "cart-2"}

	rec := env.do(t, http.MethodPost, "/api/checkout", token(t, "u-customer", "customer"), map[string]string{"from": "cart"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var co checkoutBody
	decodeBody(t, rec, &co)

	rec = env.do(t, http.MethodGet, "/api/checkout/"+co.ID, token(t, "u-other", "customer"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
