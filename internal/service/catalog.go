package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/platform/metrics"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/session"
	"github.com/shopspring/decimal"
)

const (
	defaultFallbackBasePrice = 10
	defaultPriceCacheTTL     = 10 * time.Minute
	defaultMaxPrice          = 10000
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// ParseSortOrder accepts the API names and the shop labels; anything else is newest-first.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price_asc", "cheapest":
		return SortPriceAsc
	case "price_desc", "highest":
		return SortPriceDesc
	default:
		return SortNewest
	}
}

// ListingFilter is a pure projection over the catalog. A zero MaxPrice means
// the catalog's configured ceiling. CropType "" or "All" disables the crop filter.
type ListingFilter struct {
	Search   string
	CropType string
	MinPrice float64
	MaxPrice float64
	Sort     SortOrder
}

type ListingCatalog interface {
	Refresh(ctx context.Context) error
	List(filter ListingFilter) []entity.MarketListing
	Get(listingID string) (entity.MarketListing, bool)
	OwnerListings(ctx context.Context, sess session.Session) ([]entity.MarketListing, error)
	LiveStock(ctx context.Context, listingIDs []string) (map[string]int, error)
	CreateListing(ctx context.Context, sess session.Session, product entity.Product, weightPerUnit float64, stockUnits int, discountPercent float64) (*entity.MarketListing, error)
	DeleteListing(ctx context.Context, sess session.Session, listingID string) error
	// DecrementStock is a provisional local estimate; the next Refresh corrects it.
	DecrementStock(ctx context.Context, listingID string, amount int)
	PriceFor(ctx context.Context, crop string) decimal.Decimal
	// CropPrices returns the price feed through the cache, without fallback.
	CropPrices(ctx context.Context) ([]entity.CropPrice, error)
	QuotePrice(ctx context.Context, crop string, weightPerUnit, discountPercent float64) decimal.Decimal
}

type CatalogConfig struct {
	FallbackBasePrice float64
	PriceCacheTTL     time.Duration
	MaxPrice          float64
}

type listingCatalog struct {
	listings   repository.ListingRepository
	ledger     InventoryLedger
	priceFeed  repository.CropPriceFeed
	priceCache repository.CropPriceCache
	log        logger.Logger
	metrics    *metrics.MetricsManager

	fallbackBase  decimal.Decimal
	priceCacheTTL time.Duration
	maxPrice      float64

	mu  sync.RWMutex
	set map[string]entity.MarketListing
}

// NewListingCatalog builds the catalog. priceCache and metricsManager may be nil.
func NewListingCatalog(
	listings repository.ListingRepository,
	ledger InventoryLedger,
	priceFeed repository.CropPriceFeed,
	priceCache repository.CropPriceCache,
	log logger.Logger,
	metricsManager *metrics.MetricsManager,
	cfg CatalogConfig,
) ListingCatalog {
	fallback := cfg.FallbackBasePrice
	if fallback <= 0 {
		fallback = defaultFallbackBasePrice
	}
	ttl := cfg.PriceCacheTTL
	if ttl <= 0 {
		ttl = defaultPriceCacheTTL
	}
	maxPrice := cfg.MaxPrice
	if maxPrice <= 0 {
		maxPrice = defaultMaxPrice
	}
	return &listingCatalog{
		listings:      listings,
		ledger:        ledger,
		priceFeed:     priceFeed,
		priceCache:    priceCache,
		log:           log,
		metrics:       metricsManager,
		fallbackBase:  decimal.NewFromFloat(fallback),
		priceCacheTTL: ttl,
		maxPrice:      maxPrice,
		set:           make(map[string]entity.MarketListing),
	}
}

func (c *listingCatalog) Refresh(ctx context.Context) error {
	_, err := c.reload(ctx)
	return err
}

func (c *listingCatalog) reload(ctx context.Context) (map[string]entity.MarketListing, error) {
	c.log.Debug("Refreshing market catalog")
	listings, err := c.listings.List(ctx)
	if err != nil {
		c.log.Errorf("Error refreshing market catalog: %v", err)
		return nil, fmt.Errorf("could not refresh catalog: %w", err)
	}

	next := make(map[string]entity.MarketListing, len(listings))
	soldOut := make([]string, 0)
	for _, l := range listings {
		if !l.Purchasable() {
			soldOut = append(soldOut, l.ID)
			continue
		}
		next[l.ID] = l
	}

	c.mu.Lock()
	c.set = next
	c.mu.Unlock()

	for _, id := range soldOut {
		c.purge(ctx, id)
	}
	return next, nil
}

// purge removes a sold-out listing locally and from the backing store.
func (c *listingCatalog) purge(ctx context.Context, listingID string) {
	c.mu.Lock()
	delete(c.set, listingID)
	c.mu.Unlock()
	c.metrics.ObservePurge()

	c.log.Infof("Purging sold-out listing %s", listingID)
	if err := c.listings.Delete(ctx, listingID); err != nil {
		c.log.Warnf("Failed to delete sold-out listing %s: %v", listingID, err)
	}
}

func (c *listingCatalog) List(filter ListingFilter) []entity.MarketListing {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	crop := strings.TrimSpace(filter.CropType)
	if strings.EqualFold(crop, "all") {
		crop = ""
	}
	maxPrice := filter.MaxPrice
	if maxPrice <= 0 {
		maxPrice = c.maxPrice
	}

	c.mu.RLock()
	out := make([]entity.MarketListing, 0, len(c.set))
	for _, l := range c.set {
		if search != "" && !strings.Contains(strings.ToLower(l.ProductName), search) {
			continue
		}
		if crop != "" && l.ProductName != crop {
			continue
		}
		if l.UnitPrice < filter.MinPrice || l.UnitPrice > maxPrice {
			continue
		}
		out = append(out, l)
	}
	c.mu.RUnlock()

	switch filter.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].UnitPrice == out[j].UnitPrice {
				return out[i].ID < out[j].ID
			}
			return out[i].UnitPrice < out[j].UnitPrice
		})
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].UnitPrice == out[j].UnitPrice {
				return out[i].ID < out[j].ID
			}
			return out[i].UnitPrice > out[j].UnitPrice
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].DateAdded.Equal(out[j].DateAdded) {
				return out[i].ID > out[j].ID
			}
			return out[i].DateAdded.After(out[j].DateAdded)
		})
	}
	return out
}

func (c *listingCatalog) Get(listingID string) (entity.MarketListing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.set[listingID]
	return l, ok
}

func (c *listingCatalog) OwnerListings(ctx context.Context, sess session.Session) ([]entity.MarketListing, error) {
	if err := sess.RequireFarmer(); err != nil {
		return nil, apperr.ValidationErr("catalog.owner_listings", err)
	}
	listings, err := c.listings.ListByOwner(ctx, sess.FarmerID)
	if err != nil {
		c.log.Errorf("Error fetching listings for farmer %s: %v", sess.FarmerID, err)
		return nil, fmt.Errorf("could not fetch listings: %w", err)
	}
	return listings, nil
}

func (c *listingCatalog) LiveStock(ctx context.Context, listingIDs []string) (map[string]int, error) {
	live, err := c.reload(ctx)
	if err != nil {
		return nil, err
	}
	stock := make(map[string]int, len(listingIDs))
	for _, id := range listingIDs {
		stock[id] = live[id].StockUnits
	}
	return stock, nil
}

func (c *listingCatalog) CreateListing(ctx context.Context, sess session.Session, product entity.Product, weightPerUnit float64, stockUnits int, discountPercent float64) (*entity.MarketListing, error) {
	const op = "catalog.create_listing"
	if err := sess.RequireFarmer(); err != nil {
		return nil, apperr.ValidationErr(op, err)
	}

	// A cached ledger entry is at least as fresh as what the caller holds.
	if product.ID != "" {
		if cached, err := c.ledger.Product(ctx, sess, product.ID); err == nil {
			product = *cached
		}
	}

	draft := entity.ListingDraft{
		OwnerID:         sess.FarmerID,
		Product:         product,
		WeightPerUnit:   weightPerUnit,
		StockUnits:      stockUnits,
		DiscountPercent: discountPercent,
	}
	if err := draft.Validate(); err != nil {
		return nil, apperr.ValidationErr(op, err)
	}
	if !draft.Fits() {
		c.log.Warnf("Rejected listing for %s: %.2f kg requested, %.2f kg available", product.CropName, draft.TotalWeight().InexactFloat64(), product.QuantityKg)
		verr := apperr.ValidationErr(op, ErrInsufficientProduct)
		verr.Message = fmt.Sprintf("Not enough stock. Available: %s kg", decimal.NewFromFloat(product.QuantityKg).StringFixed(2))
		return nil, verr
	}

	quote := c.QuotePrice(ctx, product.CropName, weightPerUnit, discountPercent)
	c.log.Infof("Creating listing: FarmerID=%s, Product=%s, Weight=%.2f, Stock=%d, Discount=%.1f, QuotedPrice=%s",
		sess.FarmerID, product.ID, weightPerUnit, stockUnits, discountPercent, quote.StringFixed(2))

	listing, err := c.listings.Create(ctx, draft)
	if err != nil {
		c.log.Errorf("Error creating listing for product %s: %v", product.ID, err)
		return nil, fmt.Errorf("could not create listing: %w", err)
	}
	if !decimal.NewFromFloat(listing.UnitPrice).Equal(quote) {
		c.log.Debugf("Listing %s priced %.2f by server, quoted %s", listing.ID, listing.UnitPrice, quote.StringFixed(2))
	}

	if listing.Purchasable() {
		c.mu.Lock()
		c.set[listing.ID] = *listing
		c.mu.Unlock()
	}
	c.ledger.Consume(sess.FarmerID, product.ID, draft.TotalWeight())
	return listing, nil
}

func (c *listingCatalog) DeleteListing(ctx context.Context, sess session.Session, listingID string) error {
	if err := sess.RequireFarmer(); err != nil {
		return apperr.ValidationErr("catalog.delete_listing", err)
	}
	c.log.Infof("Deleting listing: FarmerID=%s, ListingID=%s", sess.FarmerID, listingID)
	if err := c.listings.Delete(ctx, listingID); err != nil {
		c.log.Errorf("Error deleting listing %s: %v", listingID, err)
		return fmt.Errorf("could not delete listing: %w", err)
	}

	c.mu.Lock()
	delete(c.set, listingID)
	c.mu.Unlock()
	// The server hands the listed weight back to the product.
	c.ledger.Invalidate(sess.FarmerID)
	return nil
}

func (c *listingCatalog) DecrementStock(ctx context.Context, listingID string, amount int) {
	if amount <= 0 {
		return
	}
	c.mu.Lock()
	l, ok := c.set[listingID]
	if !ok {
		c.mu.Unlock()
		return
	}
	l.StockUnits -= amount
	c.set[listingID] = l
	c.mu.Unlock()

	if !l.Purchasable() {
		c.purge(ctx, listingID)
	}
}

func (c *listingCatalog) PriceFor(ctx context.Context, crop string) decimal.Decimal {
	prices, err := c.cropPrices(ctx)
	if err != nil {
		c.log.Warnf("Price feed unavailable, using fallback base price for %s: %v", crop, err)
		return c.fallbackBase
	}
	var (
		best  entity.CropPrice
		found bool
	)
	for _, p := range prices {
		if !strings.EqualFold(strings.TrimSpace(p.Crop), strings.TrimSpace(crop)) {
			continue
		}
		if !found || p.Year > best.Year {
			best, found = p, true
		}
	}
	if !found {
		return c.fallbackBase
	}
	return best.BasePrice
}

func (c *listingCatalog) QuotePrice(ctx context.Context, crop string, weightPerUnit, discountPercent float64) decimal.Decimal {
	return entity.UnitPrice(weightPerUnit, c.PriceFor(ctx, crop), discountPercent)
}

func (c *listingCatalog) CropPrices(ctx context.Context) ([]entity.CropPrice, error) {
	prices, err := c.cropPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load crop prices: %w", err)
	}
	return prices, nil
}

func (c *listingCatalog) cropPrices(ctx context.Context) ([]entity.CropPrice, error) {
	if c.priceCache != nil {
		prices, err := c.priceCache.Get(ctx)
		if err == nil {
			return prices, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			c.log.Warnf("Error reading crop prices from cache: %v. Fetching from feed.", err)
		}
	}

	prices, err := c.priceFeed.ListCropPrices(ctx)
	if err != nil {
		return nil, err
	}
	if c.priceCache != nil {
		if err := c.priceCache.Set(ctx, prices, c.priceCacheTTL); err != nil {
			c.log.Warnf("Failed to cache crop prices: %v", err)
		}
	}
	return prices, nil
}
