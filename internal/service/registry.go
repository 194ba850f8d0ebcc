package service

import (
	"context"
	"sync"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/platform/metrics"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/session"
)

// CartViews keeps one watched CartStore per cart for the life of the process.
type CartViews struct {
	carts   repository.CartRepository
	catalog ListingCatalog
	signals repository.CartSignalBus
	journal repository.JournalRepository
	log     logger.Logger
	metrics *metrics.MetricsManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	views map[string]*cartView
}

type cartView struct {
	store    CartStore
	lastUsed time.Time
}

func NewCartViews(
	carts repository.CartRepository,
	catalog ListingCatalog,
	signals repository.CartSignalBus,
	journal repository.JournalRepository,
	log logger.Logger,
	metricsManager *metrics.MetricsManager,
) *CartViews {
	ctx, cancel := context.WithCancel(context.Background())
	return &CartViews{
		carts:   carts,
		catalog: catalog,
		signals: signals,
		journal: journal,
		log:     log,
		metrics: metricsManager,
		ctx:     ctx,
		cancel:  cancel,
		views:   make(map[string]*cartView),
	}
}

// Get returns the view of the session's cart, creating and watching it on first use.
func (v *CartViews) Get(ctx context.Context, sess session.Session) (CartStore, error) {
	if err := sess.RequireCart(); err != nil {
		return nil, apperr.ValidationErr("cart.view", err)
	}
	v.mu.Lock()
	view, ok := v.views[sess.CartID]
	if !ok {
		if v.ctx.Err() != nil {
			v.mu.Unlock()
			return nil, ErrStoreClosed
		}
		store, err := NewCartStore(sess, v.carts, v.catalog, v.signals, v.journal, v.log, v.metrics, CartStoreConfig{})
		if err != nil {
			v.mu.Unlock()
			return nil, err
		}
		view = &cartView{store: store}
		v.views[sess.CartID] = view
		if v.signals != nil {
			v.wg.Add(1)
			go v.watch(store)
		}
	}
	view.lastUsed = time.Now()
	store := view.store
	v.mu.Unlock()

	if !ok {
		if _, err := store.Refresh(ctx); err != nil {
			v.drop(sess.CartID, view)
			return nil, err
		}
	}
	return store, nil
}

// drop forgets a view that never loaded its cart, so the next Get starts over.
func (v *CartViews) drop(cartID string, view *cartView) {
	v.mu.Lock()
	if v.views[cartID] == view {
		delete(v.views, cartID)
	}
	v.mu.Unlock()
	_ = view.store.Close()
	v.log.Warnf("Dropped view of cart %s after failed first load", cartID)
}

func (v *CartViews) watch(store CartStore) {
	defer v.wg.Done()
	if err := store.Watch(v.ctx); err != nil && v.ctx.Err() == nil {
		v.log.Errorf("Watching cart %s stopped: %v", store.CartID(), err)
	}
}

// Evict closes views not used for longer than idle and returns how many went.
func (v *CartViews) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	v.mu.Lock()
	defer v.mu.Unlock()
	evicted := 0
	for id, view := range v.views {
		if view.lastUsed.After(cutoff) {
			continue
		}
		_ = view.store.Close()
		delete(v.views, id)
		evicted++
	}
	if evicted > 0 {
		v.log.Infof("Evicted %d idle cart view(s)", evicted)
	}
	return evicted
}

// Close stops every watcher and closes every view.
func (v *CartViews) Close() error {
	v.cancel()
	v.mu.Lock()
	for id, view := range v.views {
		_ = view.store.Close()
		delete(v.views, id)
	}
	v.mu.Unlock()
	v.wg.Wait()
	return nil
}

// CheckoutSessions holds the reconcilers of checkouts in progress.
type CheckoutSessions struct {
	carts   repository.CartRepository
	catalog ListingCatalog
	journal repository.JournalRepository
	log     logger.Logger
	metrics *metrics.MetricsManager

	mu       sync.Mutex
	sessions map[string]checkoutEntry
}

type checkoutEntry struct {
	owner      string
	reconciler CheckoutReconciler
	lastUsed   time.Time
}

func NewCheckoutSessions(
	carts repository.CartRepository,
	catalog ListingCatalog,
	journal repository.JournalRepository,
	log logger.Logger,
	metricsManager *metrics.MetricsManager,
) *CheckoutSessions {
	return &CheckoutSessions{
		carts:    carts,
		catalog:  catalog,
		journal:  journal,
		log:      log,
		metrics:  metricsManager,
		sessions: make(map[string]checkoutEntry),
	}
}

func (c *CheckoutSessions) Start(sess session.Session, selection entity.PurchaseSelection, store CartStore) CheckoutReconciler {
	r := NewCheckoutReconciler(sess, selection, c.carts, c.catalog, store, c.journal, c.log, c.metrics)
	c.mu.Lock()
	c.sessions[r.ID()] = checkoutEntry{owner: sess.CustomerID, reconciler: r, lastUsed: time.Now()}
	c.mu.Unlock()
	c.log.Infof("Checkout started: ID=%s, CustomerID=%s, Source=%s, Lines=%d", r.ID(), sess.CustomerID, selection.Source, len(selection.Lines))
	return r
}

// Get only returns checkouts started by the same customer.
func (c *CheckoutSessions) Get(sess session.Session, id string) (CheckoutReconciler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.sessions[id]
	if !ok || entry.owner != sess.CustomerID {
		return nil, ErrCheckoutNotFound
	}
	entry.lastUsed = time.Now()
	c.sessions[id] = entry
	return entry.reconciler, nil
}

func (c *CheckoutSessions) Drop(id string) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// Evict drops abandoned checkouts. One that is validating or committing stays.
func (c *CheckoutSessions) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for id, entry := range c.sessions {
		if entry.lastUsed.After(cutoff) {
			continue
		}
		switch entry.reconciler.State() {
		case entity.StateValidating, entity.StateCommitting:
			continue
		}
		delete(c.sessions, id)
		evicted++
	}
	if evicted > 0 {
		c.log.Infof("Evicted %d abandoned checkout(s)", evicted)
	}
	return evicted
}
