package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type catalogFixture struct {
	products *MockProductRepository
	listings *MockListingRepository
	feed     *MockCropPriceFeed
	cache    *MockCropPriceCache
	ledger   InventoryLedger
	catalog  ListingCatalog
}

func newCatalogFixture(withCache bool) *catalogFixture {
	f := &catalogFixture{
		products: new(MockProductRepository),
		listings: new(MockListingRepository),
		feed:     new(MockCropPriceFeed),
	}
	f.ledger = NewInventoryLedger(f.products, NewNoOpLogger())
	var cache repository.CropPriceCache
	if withCache {
		f.cache = new(MockCropPriceCache)
		cache = f.cache
	}
	f.catalog = NewListingCatalog(f.listings, f.ledger, f.feed, cache, NewNoOpLogger(), nil, CatalogConfig{})
	return f
}

func listing(id, name string, price float64, stock int, added time.Time) entity.MarketListing {
	return entity.MarketListing{ID: id, OwnerID: "f1", ProductName: name, UnitPrice: price, StockUnits: stock, WeightPerUnit: 1, DateAdded: added}
}

func TestListingCatalog_WheatScenario(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()

	f.products.On("Upsert", ctx, mock.AnythingOfType("entity.Product")).
		Return(&entity.Product{ID: "p1", OwnerID: "f1", CropName: "wheat", QuantityKg: 100, ReapDate: "2024-05-01"}, nil).Once()
	f.feed.On("ListCropPrices", ctx).
		Return([]entity.CropPrice{{Crop: "Wheat", Year: 2024, BasePrice: decimal.NewFromInt(3)}}, nil).Once()
	f.listings.On("Create", ctx, mock.MatchedBy(func(d entity.ListingDraft) bool { return d.StockUnits == 10 })).
		Return(&entity.MarketListing{ID: "l1", OwnerID: "f1", ProductID: "p1", ProductName: "wheat", WeightPerUnit: 5, StockUnits: 10, UnitPrice: 15}, nil).Once()

	wheat, err := f.ledger.UpsertProduct(ctx, farmerSess, "wheat", 100, "2024-05-01")
	require.NoError(t, err)

	first, err := f.catalog.CreateListing(ctx, farmerSess, *wheat, 5, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "l1", first.ID)

	_, err = f.catalog.CreateListing(ctx, farmerSess, *wheat, 5, 15, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.ErrorIs(t, err, ErrInsufficientProduct)
	assert.Equal(t, "Not enough stock. Available: 50.00 kg", apperr.MessageOf(err))

	f.listings.AssertNumberOfCalls(t, "Create", 1)
	f.feed.AssertNumberOfCalls(t, "ListCropPrices", 1)
	got, ok := f.catalog.Get("l1")
	require.True(t, ok)
	assert.Equal(t, 10, got.StockUnits)
}

func TestListingCatalog_CreateListingRejectsOversizeWithoutCall(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()
	f.products.On("ListByOwner", ctx, "f1").Return([]entity.Product{}, nil)

	product := entity.Product{ID: "p9", OwnerID: "f1", CropName: "maize", QuantityKg: 20, ReapDate: "2024-05-01"}
	_, err := f.catalog.CreateListing(ctx, farmerSess, product, 2.5, 9, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientProduct)

	_, err = f.catalog.CreateListing(ctx, farmerSess, product, 0, 1, 0)
	assert.ErrorIs(t, err, entity.ErrInvalidWeight)
	_, err = f.catalog.CreateListing(ctx, farmerSess, product, 1, 1, 120)
	assert.ErrorIs(t, err, entity.ErrInvalidDiscount)

	f.listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.feed.AssertNotCalled(t, "ListCropPrices", mock.Anything)
}

func TestListingCatalog_RefreshPurgesSoldOut(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()
	now := time.Now()

	f.listings.On("List", ctx).Return([]entity.MarketListing{
		listing("l1", "wheat", 10, 4, now),
		listing("l2", "rice", 12, 0, now),
		listing("l3", "maize", 8, -1, now),
	}, nil).Once()
	f.listings.On("Delete", ctx, "l2").Return(nil).Once()
	f.listings.On("Delete", ctx, "l3").Return(errors.New("boom")).Once()

	require.NoError(t, f.catalog.Refresh(ctx))

	all := f.catalog.List(ListingFilter{})
	require.Len(t, all, 1)
	assert.Equal(t, "l1", all[0].ID)
	_, ok := f.catalog.Get("l3")
	assert.False(t, ok)
	f.listings.AssertExpectations(t)
}

func TestListingCatalog_DecrementStockPurgesAtZero(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()

	f.listings.On("List", ctx).Return([]entity.MarketListing{listing("l1", "wheat", 10, 3, time.Now())}, nil).Once()
	f.listings.On("Delete", ctx, "l1").Return(nil).Once()
	require.NoError(t, f.catalog.Refresh(ctx))

	f.catalog.DecrementStock(ctx, "l1", 2)
	got, ok := f.catalog.Get("l1")
	require.True(t, ok)
	assert.Equal(t, 1, got.StockUnits)
	f.listings.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	f.catalog.DecrementStock(ctx, "l1", 1)
	_, ok = f.catalog.Get("l1")
	assert.False(t, ok)
	f.listings.AssertExpectations(t)
}

func TestListingCatalog_ListFiltersAndSorts(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	f.listings.On("List", ctx).Return([]entity.MarketListing{
		listing("l1", "Wheat", 30, 5, base),
		listing("l2", "Rice", 12, 5, base.Add(time.Hour)),
		listing("l3", "Buckwheat", 50, 5, base.Add(2*time.Hour)),
		listing("l4", "Wheat", 9000, 5, base.Add(3*time.Hour)),
		listing("l5", "Wheat", 12000, 5, base.Add(4*time.Hour)),
	}, nil).Once()
	require.NoError(t, f.catalog.Refresh(ctx))

	ids := func(ls []entity.MarketListing) []string {
		out := make([]string, 0, len(ls))
		for _, l := range ls {
			out = append(out, l.ID)
		}
		return out
	}

	assert.Equal(t, []string{"l4", "l3", "l2", "l1"}, ids(f.catalog.List(ListingFilter{})))
	assert.Equal(t, []string{"l2", "l1", "l3", "l4"}, ids(f.catalog.List(ListingFilter{Sort: SortPriceAsc})))
	assert.Equal(t, []string{"l4", "l3", "l1", "l2"}, ids(f.catalog.List(ListingFilter{Sort: SortPriceDesc})))
	assert.Equal(t, []string{"l4", "l3", "l1"}, ids(f.catalog.List(ListingFilter{Search: "WHEAT"})))
	assert.Equal(t, []string{"l4", "l1"}, ids(f.catalog.List(ListingFilter{CropType: "Wheat"})))
	assert.Equal(t, []string{"l4", "l3", "l2", "l1"}, ids(f.catalog.List(ListingFilter{CropType: "All"})))
	assert.Equal(t, []string{"l1"}, ids(f.catalog.List(ListingFilter{CropType: "Wheat", MaxPrice: 30})))
	assert.Equal(t, []string{"l4", "l5"}, ids(f.catalog.List(ListingFilter{MinPrice: 100, MaxPrice: 20000, Sort: SortPriceAsc})))

	projected := f.catalog.List(ListingFilter{})
	projected[0].StockUnits = 0
	got, _ := f.catalog.Get(projected[0].ID)
	assert.Equal(t, 5, got.StockUnits)
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortPriceAsc, ParseSortOrder("Cheapest"))
	assert.Equal(t, SortPriceDesc, ParseSortOrder("price_desc"))
	assert.Equal(t, SortNewest, ParseSortOrder("Newest"))
	assert.Equal(t, SortNewest, ParseSortOrder(""))
}

func TestListingCatalog_PriceFor(t *testing.T) {
	f := newCatalogFixture(true)
	ctx := context.Background()
	prices := []entity.CropPrice{
		{Crop: "Wheat", Year: 2023, BasePrice: decimal.NewFromInt(2)},
		{Crop: "wheat", Year: 2025, BasePrice: decimal.RequireFromString("3.5")},
		{Crop: "Rice", Year: 2024, BasePrice: decimal.NewFromInt(4)},
	}

	f.cache.On("Get", ctx).Return(nil, repository.ErrNotFound).Once()
	f.feed.On("ListCropPrices", ctx).Return(prices, nil).Once()
	f.cache.On("Set", ctx, prices, defaultPriceCacheTTL).Return(nil).Once()
	f.cache.On("Get", ctx).Return(prices, nil)

	assert.True(t, decimal.RequireFromString("3.5").Equal(f.catalog.PriceFor(ctx, "WHEAT")))
	assert.True(t, decimal.NewFromInt(defaultFallbackBasePrice).Equal(f.catalog.PriceFor(ctx, "quinoa")))
	assert.Equal(t, "7.88", f.catalog.QuotePrice(ctx, "wheat", 2.5, 10).StringFixed(2))

	f.feed.AssertNumberOfCalls(t, "ListCropPrices", 1)
	f.cache.AssertExpectations(t)
}

func TestListingCatalog_PriceForFallsBackWhenFeedDown(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()
	f.feed.On("ListCropPrices", ctx).Return(nil, apperr.Transport("crop_prices.list", errors.New("dial tcp"))).Once()

	assert.True(t, decimal.NewFromInt(10).Equal(f.catalog.PriceFor(ctx, "wheat")))
}

func TestListingCatalog_CropPricesSurfacesFeedError(t *testing.T) {
	f := newCatalogFixture(true)
	ctx := context.Background()
	f.cache.On("Get", ctx).Return(nil, repository.ErrNotFound).Once()
	f.feed.On("ListCropPrices", ctx).Return(nil, apperr.Transport("crop_prices.list", errors.New("dial tcp"))).Once()

	_, err := f.catalog.CropPrices(ctx)

	require.Error(t, err)
	assert.True(t, apperr.IsTransport(err))
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingCatalog_LiveStockRefetches(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()
	now := time.Now()

	f.listings.On("List", ctx).Return([]entity.MarketListing{listing("l1", "wheat", 10, 5, now)}, nil).Once()
	f.listings.On("List", ctx).Return([]entity.MarketListing{listing("l1", "wheat", 10, 2, now)}, nil).Once()

	require.NoError(t, f.catalog.Refresh(ctx))
	stock, err := f.catalog.LiveStock(ctx, []string{"l1", "gone"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"l1": 2, "gone": 0}, stock)
}

func TestListingCatalog_DeleteListingInvalidatesLedger(t *testing.T) {
	f := newCatalogFixture(false)
	ctx := context.Background()

	f.products.On("ListByOwner", ctx, "f1").
		Return([]entity.Product{{ID: "p1", OwnerID: "f1", CropName: "wheat", QuantityKg: 50, ReapDate: "2024-05-01"}}, nil).Once()
	f.products.On("ListByOwner", ctx, "f1").
		Return([]entity.Product{{ID: "p1", OwnerID: "f1", CropName: "wheat", QuantityKg: 100, ReapDate: "2024-05-01"}}, nil).Once()
	f.listings.On("Delete", ctx, "l1").Return(nil).Once()

	_, err := f.ledger.Products(ctx, farmerSess)
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteListing(ctx, farmerSess, "l1"))

	p, err := f.ledger.Product(ctx, farmerSess, "p1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.QuantityKg)
	f.products.AssertExpectations(t)
}
