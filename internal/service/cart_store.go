package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/platform/metrics"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// CartStore is one view of a remote cart. Local state is only ever what the
// server last returned.
type CartStore interface {
	ViewID() string
	CartID() string
	Refresh(ctx context.Context) (*entity.Cart, error)
	// Watch refetches on every change signal raised by another view. It
	// returns nil once the store is closed and ctx.Err() when ctx is done.
	Watch(ctx context.Context) error
	AddItem(ctx context.Context, listingID string, quantity int) (*entity.Cart, error)
	SetQuantity(ctx context.Context, cartItemID string, quantity int) (*entity.Cart, error)
	Increment(ctx context.Context, cartItemID string) (*entity.Cart, error)
	Decrement(ctx context.Context, cartItemID string) (*entity.Cart, error)
	Remove(ctx context.Context, cartItemID string) (*entity.Cart, error)
	Snapshot() *entity.Cart
	ValidItems() []entity.CartItem
	InvalidItems() []entity.CartItem
	ValidTotal() decimal.Decimal
	Clear()
	// Announce tells the other views of this cart to refetch.
	Announce(ctx context.Context)
	Close() error
}

type CartStoreConfig struct {
	// ViewID identifies this view in change signals. Generated when empty.
	ViewID string
}

type cartStore struct {
	sess    session.Session
	carts   repository.CartRepository
	catalog ListingCatalog
	signals repository.CartSignalBus
	journal repository.JournalRepository
	log     logger.Logger
	metrics *metrics.MetricsManager
	viewID  string

	refreshGroup singleflight.Group

	mu       sync.Mutex
	cart     *entity.Cart
	inFlight map[string]struct{}
	closed   bool
	done     chan struct{}
}

// NewCartStore builds a view of the session's cart. signals, journal and
// metricsManager may be nil.
func NewCartStore(
	sess session.Session,
	carts repository.CartRepository,
	catalog ListingCatalog,
	signals repository.CartSignalBus,
	journal repository.JournalRepository,
	log logger.Logger,
	metricsManager *metrics.MetricsManager,
	cfg CartStoreConfig,
) (CartStore, error) {
	if err := sess.RequireCart(); err != nil {
		return nil, apperr.ValidationErr("cart.new", err)
	}
	viewID := cfg.ViewID
	if viewID == "" {
		viewID = uuid.NewString()
	}
	return &cartStore{
		sess:     sess,
		carts:    carts,
		catalog:  catalog,
		signals:  signals,
		journal:  journal,
		log:      log.With("cart_id", sess.CartID, "view_id", viewID),
		metrics:  metricsManager,
		viewID:   viewID,
		cart:     entity.NewCart(sess.CartID),
		inFlight: make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (s *cartStore) ViewID() string { return s.viewID }

func (s *cartStore) CartID() string { return s.sess.CartID }

func (s *cartStore) Refresh(ctx context.Context) (*entity.Cart, error) {
	v, err, _ := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		s.log.Debug("Refreshing cart")
		cart, err := s.carts.Get(ctx, s.sess.CartID)
		if err != nil {
			s.log.Errorf("Error fetching cart: %v", err)
			return nil, fmt.Errorf("could not fetch cart: %w", err)
		}
		if !s.install(cart) {
			return nil, ErrStoreClosed
		}
		return cart.Clone(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.Cart).Clone(), nil
}

func (s *cartStore) Watch(ctx context.Context) error {
	if s.signals == nil {
		return ErrNoSignalBus
	}
	pending := make(chan struct{}, 1)
	sub, err := s.signals.Subscribe(ctx, s.sess.CartID, func(sig repository.CartSignal) {
		if sig.Origin == s.viewID {
			return
		}
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	if err != nil {
		s.log.Errorf("Error subscribing to cart changes: %v", err)
		return fmt.Errorf("could not watch cart: %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Warnf("Failed to unsubscribe from cart changes: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-pending:
			s.log.Debug("Cart changed in another view, refetching")
			if _, err := s.Refresh(ctx); err != nil && err != ErrStoreClosed {
				s.log.Warnf("Refetch after change signal failed: %v", err)
			}
		}
	}
}

func (s *cartStore) AddItem(ctx context.Context, listingID string, quantity int) (*entity.Cart, error) {
	const op = "cart.add_item"
	if quantity < 1 {
		return nil, apperr.ValidationErr(op, ErrQuantityBelowOne)
	}
	if err := s.begin("listing:" + listingID); err != nil {
		return nil, err
	}
	defer s.end("listing:" + listingID)

	s.log.Infof("Adding item to cart: ListingID=%s, Quantity=%d", listingID, quantity)
	cart, err := s.carts.AddItem(ctx, s.sess.CartID, listingID, quantity)
	s.metrics.ObserveCartMutation("add_item", err)
	if err != nil {
		s.log.Errorf("Error adding listing %s to cart: %v", listingID, err)
		return nil, fmt.Errorf("could not add item to cart: %w", err)
	}
	if !s.install(cart) {
		return nil, ErrStoreClosed
	}

	s.catalog.DecrementStock(ctx, listingID, quantity)
	s.publish(ctx)
	s.record(ctx, entity.ActionAdd, listingID, quantity, cart)
	return cart.Clone(), nil
}

// SetQuantity below 1 is a no-op returning the current cart.
func (s *cartStore) SetQuantity(ctx context.Context, cartItemID string, quantity int) (*entity.Cart, error) {
	if quantity < 1 {
		return s.Snapshot(), nil
	}
	if err := s.begin(cartItemID); err != nil {
		return nil, err
	}
	defer s.end(cartItemID)

	s.log.Infof("Updating cart item quantity: CartItemID=%s, Quantity=%d", cartItemID, quantity)
	cart, err := s.carts.UpdateQuantity(ctx, s.sess.CartID, cartItemID, quantity)
	s.metrics.ObserveCartMutation("update_quantity", err)
	if err != nil {
		s.log.Errorf("Error updating cart item %s: %v", cartItemID, err)
		return nil, fmt.Errorf("could not update cart item quantity: %w", err)
	}
	if !s.install(cart) {
		return nil, ErrStoreClosed
	}
	s.publish(ctx)
	return cart.Clone(), nil
}

func (s *cartStore) Increment(ctx context.Context, cartItemID string) (*entity.Cart, error) {
	item, ok := s.item(cartItemID)
	if !ok {
		return nil, apperr.ValidationErr("cart.increment", ErrItemNotInCart)
	}
	if item.Quantity+1 > item.Listing.Stock {
		return nil, apperr.ValidationErr("cart.increment", ErrQuantityAboveStock)
	}
	return s.SetQuantity(ctx, cartItemID, item.Quantity+1)
}

func (s *cartStore) Decrement(ctx context.Context, cartItemID string) (*entity.Cart, error) {
	item, ok := s.item(cartItemID)
	if !ok {
		return nil, apperr.ValidationErr("cart.decrement", ErrItemNotInCart)
	}
	if item.Quantity-1 < 1 {
		return nil, apperr.ValidationErr("cart.decrement", ErrQuantityBelowOne)
	}
	return s.SetQuantity(ctx, cartItemID, item.Quantity-1)
}

func (s *cartStore) Remove(ctx context.Context, cartItemID string) (*entity.Cart, error) {
	if err := s.begin(cartItemID); err != nil {
		return nil, err
	}
	defer s.end(cartItemID)

	removed, _ := s.item(cartItemID)
	s.log.Infof("Removing item from cart: CartItemID=%s", cartItemID)
	cart, err := s.carts.RemoveItem(ctx, s.sess.CartID, cartItemID)
	s.metrics.ObserveCartMutation("remove_item", err)
	if err != nil {
		s.log.Errorf("Error removing cart item %s: %v", cartItemID, err)
		return nil, fmt.Errorf("could not remove item from cart: %w", err)
	}
	if !s.install(cart) {
		return nil, ErrStoreClosed
	}
	s.publish(ctx)
	if removed.Listing.ID != "" {
		s.recordItem(ctx, entity.ActionRemove, removed)
	}
	return cart.Clone(), nil
}

func (s *cartStore) Snapshot() *entity.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *cartStore) ValidItems() []entity.CartItem {
	return s.Snapshot().ValidItems()
}

func (s *cartStore) InvalidItems() []entity.CartItem {
	return s.Snapshot().InvalidItems()
}

func (s *cartStore) ValidTotal() decimal.Decimal {
	return s.Snapshot().ValidTotal()
}

func (s *cartStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cart = entity.NewCart(s.sess.CartID)
}

func (s *cartStore) Announce(ctx context.Context) {
	s.publish(ctx)
}

func (s *cartStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	s.log.Debug("Cart view closed")
	return nil
}

// install replaces the cached cart unless the view was closed meanwhile.
func (s *cartStore) install(cart *entity.Cart) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.cart = cart.Clone()
	return true
}

func (s *cartStore) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, busy := s.inFlight[key]; busy {
		return apperr.ValidationErr("cart.mutate", ErrMutationInFlight)
	}
	s.inFlight[key] = struct{}{}
	return nil
}

func (s *cartStore) end(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func (s *cartStore) item(cartItemID string) (entity.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, idx := s.cart.GetItem(cartItemID)
	if idx < 0 {
		return entity.CartItem{}, false
	}
	return *item, true
}

func (s *cartStore) publish(ctx context.Context) {
	if s.signals == nil {
		return
	}
	sig := repository.CartSignal{CartID: s.sess.CartID, Origin: s.viewID, At: time.Now().UTC()}
	if err := s.signals.Publish(ctx, sig); err != nil {
		s.log.Warnf("Failed to publish cart change: %v", err)
	}
}

func (s *cartStore) record(ctx context.Context, action entity.ActionType, listingID string, quantity int, cart *entity.Cart) {
	item, idx := cart.ItemByListing(listingID)
	if idx < 0 {
		s.recordItem(ctx, action, entity.CartItem{Quantity: quantity, Listing: entity.ListingRef{ID: listingID}})
		return
	}
	entry := *item
	entry.Quantity = quantity
	s.recordItem(ctx, action, entry)
}

func (s *cartStore) recordItem(ctx context.Context, action entity.ActionType, item entity.CartItem) {
	if s.journal == nil {
		return
	}
	err := s.journal.RecordAction(ctx, entity.CustomerAction{
		CustomerID:       s.sess.CustomerID,
		CartID:           s.sess.CartID,
		ListingID:        item.Listing.ID,
		Action:           action,
		Quantity:         item.Quantity,
		PriceAtAction:    item.Listing.Price,
		DiscountAtAction: item.Listing.Discount,
		StockAtAction:    item.Listing.Stock,
		At:               time.Now().UTC(),
	})
	if err != nil {
		s.log.Warnf("Failed to journal %s for listing %s: %v", action, item.Listing.ID, err)
	}
}
