package router

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/shopspring/decimal"
)

// fakeMarket is an in-memory stand-in for the remote market API.
type fakeMarket struct {
	mu        sync.Mutex
	products  map[string][]entity.Product
	listings  map[string]entity.MarketListing
	carts     map[string]*entity.Cart
	customers map[string]entity.Customer
	farmers   map[string]string
	nextID    int
	creates   int
	receipts  []entity.PurchaseReceipt
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		products:  make(map[string][]entity.Product),
		listings:  make(map[string]entity.MarketListing),
		carts:     make(map[string]*entity.Cart),
		customers: make(map[string]entity.Customer),
		farmers:   make(map[string]string),
	}
}

func (m *fakeMarket) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s%d", prefix, m.nextID)
}

type fakeProducts struct{ *fakeMarket }

func (f fakeProducts) ListByOwner(ctx context.Context, ownerID string) ([]entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Product(nil), f.products[ownerID]...), nil
}

func (f fakeProducts) Upsert(ctx context.Context, p entity.Product) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.products[p.OwnerID] {
		if existing.SameLot(p.CropName, p.ReapDate) {
			p.ID = existing.ID
		}
	}
	if p.ID == "" {
		p.ID = f.id("p")
	}
	f.products[p.OwnerID] = entity.MergeProduct(f.products[p.OwnerID], p)
	return &p, nil
}

type fakeListings struct{ *fakeMarket }

func (f fakeListings) List(ctx context.Context) ([]entity.MarketListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.MarketListing, 0, len(f.listings))
	for _, l := range f.listings {
		out = append(out, l)
	}
	return out, nil
}

func (f fakeListings) ListByOwner(ctx context.Context, ownerID string) ([]entity.MarketListing, error) {
	all, _ := f.List(ctx)
	out := make([]entity.MarketListing, 0)
	for _, l := range all {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f fakeListings) Create(ctx context.Context, d entity.ListingDraft) (*entity.MarketListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	l := entity.MarketListing{
		ID:              f.id("l"),
		OwnerID:         d.OwnerID,
		ProductID:       d.Product.ID,
		ProductName:     d.Product.CropName,
		WeightPerUnit:   d.WeightPerUnit,
		StockUnits:      d.StockUnits,
		DiscountPercent: d.DiscountPercent,
		UnitPrice:       entity.UnitPrice(d.WeightPerUnit, decimal.NewFromInt(3), d.DiscountPercent).InexactFloat64(),
		DateAdded:       time.Now(),
	}
	f.listings[l.ID] = l
	return &l, nil
}

func (f fakeListings) Delete(ctx context.Context, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listings, listingID)
	return nil
}

type fakePrices struct{}

func (fakePrices) ListCropPrices(ctx context.Context) ([]entity.CropPrice, error) {
	return []entity.CropPrice{{Crop: "wheat", Year: 2024, BasePrice: decimal.NewFromInt(3)}}, nil
}

type fakeCarts struct{ *fakeMarket }

func (f fakeCarts) cart(cartID string) *entity.Cart {
	c, ok := f.carts[cartID]
	if !ok {
		c = entity.NewCart(cartID)
		f.carts[cartID] = c
	}
	// Items always carry the live listing state.
	for i := range c.Items {
		if l, ok := f.listings[c.Items[i].Listing.ID]; ok {
			c.Items[i].Listing.Stock = l.StockUnits
			c.Items[i].Listing.Price = l.UnitPrice
		}
	}
	return c
}

func (f fakeCarts) Get(ctx context.Context, cartID string) (*entity.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart(cartID).Clone(), nil
}

func (f fakeCarts) AddItem(ctx context.Context, cartID, listingID string, quantity int) (*entity.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok {
		return nil, apperr.Rejected("cart.add_item", http.StatusNotFound, "Market item not found")
	}
	c := f.cart(cartID)
	if item, idx := c.ItemByListing(listingID); idx >= 0 {
		item.Quantity += quantity
		return c.Clone(), nil
	}
	c.Items = append(c.Items, entity.CartItem{
		CartItemID:  "ci-" + listingID,
		ProductName: l.ProductName,
		Price:       l.UnitPrice,
		Quantity:    quantity,
		Listing:     entity.ListingRef{ID: l.ID, Stock: l.StockUnits, Price: l.UnitPrice},
	})
	return c.Clone(), nil
}

func (f fakeCarts) UpdateQuantity(ctx context.Context, cartID, cartItemID string, quantity int) (*entity.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cart(cartID)
	item, idx := c.GetItem(cartItemID)
	if idx < 0 {
		return nil, apperr.Rejected("cart.update_quantity", http.StatusNotFound, "Item not found")
	}
	item.Quantity = quantity
	return c.Clone(), nil
}

func (f fakeCarts) RemoveItem(ctx context.Context, cartID, cartItemID string) (*entity.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cart(cartID)
	_, idx := c.GetItem(cartItemID)
	if idx < 0 {
		return nil, apperr.Rejected("cart.remove_item", http.StatusNotFound, "Item not found")
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return c.Clone(), nil
}

func (f fakeCarts) Purchase(ctx context.Context, cartID string) (*repository.PurchaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cart(cartID)
	if len(c.Items) == 0 {
		return nil, apperr.Rejected("cart.purchase", http.StatusBadRequest, "Cart is empty")
	}
	over := make([]entity.OverLimitLine, 0)
	for _, item := range c.Items {
		if item.Quantity > item.Listing.Stock {
			over = append(over, entity.OverLimitLine{ProductName: item.ProductName, Requested: item.Quantity, Available: item.Listing.Stock})
		}
	}
	if len(over) > 0 {
		return nil, apperr.Race("cart.purchase", "Some items exceed stock", over)
	}
	res := &repository.PurchaseResult{Message: "Purchase completed successfully"}
	for _, item := range c.Items {
		l := f.listings[item.Listing.ID]
		l.StockUnits -= item.Quantity
		f.listings[l.ID] = l
		res.Items = append(res.Items, entity.PurchasedItem{ProductName: item.ProductName, Qty: item.Quantity})
	}
	c.Items = c.Items[:0]
	return res, nil
}

type fakeAccounts struct{ *fakeMarket }

func (f fakeAccounts) CustomerByUserID(ctx context.Context, userID string) (*entity.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[userID]
	if !ok {
		return nil, apperr.Rejected("customer.lookup", http.StatusNotFound, "Customer not found")
	}
	return &c, nil
}

func (f fakeAccounts) FarmerIDByUserID(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.farmers[userID]
	if !ok {
		return "", apperr.Rejected("farmer.lookup", http.StatusNotFound, "Farmer not found")
	}
	return id, nil
}

type fakeJournal struct{ *fakeMarket }

func (f fakeJournal) RecordAction(ctx context.Context, action entity.CustomerAction) error {
	return nil
}

func (f fakeJournal) SaveReceipt(ctx context.Context, receipt entity.PurchaseReceipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, receipt)
	return nil
}

func (f fakeJournal) ReceiptsByCustomer(ctx context.Context, customerID string, limit int64) ([]entity.PurchaseReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.PurchaseReceipt, 0)
	for _, r := range f.receipts {
		if r.CustomerID == customerID && int64(len(out)) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}
