package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/platform/metrics"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/session"
	"github.com/google/uuid"
)

type ValidationResult struct {
	OK        bool                   `json:"ok"`
	OverLimit []entity.OverLimitLine `json:"over_limit"`
}

// CheckoutReconciler drives one checkout from selection to purchase.
type CheckoutReconciler interface {
	ID() string
	State() entity.CheckoutState
	Selection() entity.PurchaseSelection
	SetQuantity(listingID string, quantity int) error
	RemoveLine(listingID string) error
	// Validate checks the selection against live stock without committing.
	Validate(ctx context.Context) (ValidationResult, error)
	// Commit validates again and purchases the whole cart. Over-limit lines
	// come back as a validation error carrying []entity.OverLimitLine.
	Commit(ctx context.Context) (*entity.PurchaseReceipt, error)
}

type checkoutReconciler struct {
	id      string
	sess    session.Session
	carts   repository.CartRepository
	catalog ListingCatalog
	store   CartStore
	journal repository.JournalRepository
	log     logger.Logger
	metrics *metrics.MetricsManager

	mu        sync.Mutex
	state     entity.CheckoutState
	selection entity.PurchaseSelection
}

// NewCheckoutReconciler starts a checkout in the Building state. store is the
// cart view cleared after a purchase; journal and metricsManager may be nil.
func NewCheckoutReconciler(
	sess session.Session,
	selection entity.PurchaseSelection,
	carts repository.CartRepository,
	catalog ListingCatalog,
	store CartStore,
	journal repository.JournalRepository,
	log logger.Logger,
	metricsManager *metrics.MetricsManager,
) CheckoutReconciler {
	id := uuid.NewString()
	if selection.CartID == "" {
		selection.CartID = sess.CartID
	}
	return &checkoutReconciler{
		id:        id,
		sess:      sess,
		carts:     carts,
		catalog:   catalog,
		store:     store,
		journal:   journal,
		log:       log.With("checkout_id", id, "cart_id", selection.CartID),
		metrics:   metricsManager,
		state:     entity.StateBuilding,
		selection: selection.Clone(),
	}
}

func (r *checkoutReconciler) ID() string { return r.id }

func (r *checkoutReconciler) State() entity.CheckoutState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *checkoutReconciler) Selection() entity.PurchaseSelection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection.Clone()
}

func (r *checkoutReconciler) SetQuantity(listingID string, quantity int) error {
	const op = "checkout.set_quantity"
	if quantity < 1 {
		return apperr.ValidationErr(op, ErrQuantityBelowOne)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Editable() {
		return apperr.ValidationErr(op, ErrIllegalTransition)
	}
	next, ok := r.selection.WithQuantity(listingID, quantity)
	if !ok {
		return apperr.ValidationErr(op, ErrLineNotSelected)
	}
	r.selection = next
	r.state = entity.StateBuilding
	return nil
}

func (r *checkoutReconciler) RemoveLine(listingID string) error {
	const op = "checkout.remove_line"
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Editable() {
		return apperr.ValidationErr(op, ErrIllegalTransition)
	}
	next, ok := r.selection.Without(listingID)
	if !ok {
		return apperr.ValidationErr(op, ErrLineNotSelected)
	}
	r.selection = next
	r.state = entity.StateBuilding
	return nil
}

func (r *checkoutReconciler) Validate(ctx context.Context) (ValidationResult, error) {
	sel, err := r.enterValidating("checkout.validate")
	if err != nil {
		return ValidationResult{}, err
	}

	result, err := r.checkLiveStock(ctx, sel)
	if err != nil {
		r.transition(entity.StateBuilding)
		return ValidationResult{}, err
	}
	if !result.OK {
		r.transition(entity.StateRejected)
		r.metrics.ObserveCheckout(string(entity.StateRejected))
		return result, nil
	}
	r.transition(entity.StateBuilding)
	return result, nil
}

func (r *checkoutReconciler) Commit(ctx context.Context) (*entity.PurchaseReceipt, error) {
	const op = "checkout.commit"
	sel, err := r.enterValidating(op)
	if err != nil {
		return nil, err
	}

	// The purchase takes the whole cart, so lines the selection left out are
	// checked against live stock as well.
	var (
		cart       *entity.Cart
		unselected []entity.CartItem
	)
	if sel.Source == entity.SourceCart {
		if cart, err = r.fetchCart(ctx, sel.CartID); err != nil {
			r.fail()
			return nil, err
		}
		unselected = unselectedItems(cart, sel)
	}

	result, err := r.checkLiveStock(ctx, sel, unselected...)
	if err != nil {
		r.fail()
		return nil, err
	}
	if !result.OK {
		r.transition(entity.StateRejected)
		r.metrics.ObserveCheckout(string(entity.StateRejected))
		return nil, &apperr.Error{
			Kind:    apperr.KindValidation,
			Op:      op,
			Message: "Some items exceed stock",
			Details: result.OverLimit,
			Err:     ErrOverLimit,
		}
	}

	r.transition(entity.StateCommitting)
	if err := r.align(ctx, sel, cart); err != nil {
		r.fail()
		return nil, err
	}

	r.log.Infof("Purchasing cart: CustomerID=%s, Lines=%d", r.sess.CustomerID, len(sel.Lines))
	res, err := r.carts.Purchase(ctx, sel.CartID)
	if err != nil {
		r.log.Errorf("Purchase of cart %s failed: %v", sel.CartID, err)
		r.fail()
		return nil, fmt.Errorf("could not complete purchase: %w", err)
	}

	receipt := r.receipt(sel, res)
	r.mu.Lock()
	r.state = entity.StateCommitted
	r.selection = entity.PurchaseSelection{Source: sel.Source, CartID: sel.CartID, Lines: make([]entity.SelectionLine, 0)}
	r.mu.Unlock()
	r.metrics.ObserveCheckout(string(entity.StateCommitted))

	if r.store != nil {
		r.store.Clear()
		r.store.Announce(ctx)
	}
	for _, line := range sel.Lines {
		r.catalog.DecrementStock(ctx, line.ListingID, line.RequestedQty)
	}
	r.journalPurchase(ctx, sel, receipt)

	r.log.Infof("Purchase completed: ReceiptID=%s, Total=%.2f", receipt.ID, receipt.Total)
	return receipt, nil
}

func (r *checkoutReconciler) enterValidating(op string) (entity.PurchaseSelection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Editable() {
		return entity.PurchaseSelection{}, apperr.ValidationErr(op, ErrIllegalTransition)
	}
	if r.selection.Empty() {
		r.state = entity.StateBuilding
		return entity.PurchaseSelection{}, apperr.ValidationErr(op, ErrEmptySelection)
	}
	r.state = entity.StateValidating
	return r.selection.Clone(), nil
}

func (r *checkoutReconciler) transition(to entity.CheckoutState) {
	r.mu.Lock()
	r.state = to
	r.mu.Unlock()
}

func (r *checkoutReconciler) fail() {
	r.transition(entity.StateFailed)
	r.metrics.ObserveCheckout(string(entity.StateFailed))
}

// checkLiveStock compares every line with refetched stock, never the snapshot.
// extra holds cart items outside the selection that the purchase would still buy.
func (r *checkoutReconciler) checkLiveStock(ctx context.Context, sel entity.PurchaseSelection, extra ...entity.CartItem) (ValidationResult, error) {
	ids := make([]string, 0, len(sel.Lines)+len(extra))
	for _, line := range sel.Lines {
		ids = append(ids, line.ListingID)
	}
	for _, item := range extra {
		ids = append(ids, item.Listing.ID)
	}
	live, err := r.catalog.LiveStock(ctx, ids)
	if err != nil {
		r.log.Errorf("Error fetching live stock: %v", err)
		return ValidationResult{}, fmt.Errorf("could not validate selection: %w", err)
	}

	result := ValidationResult{OK: true, OverLimit: make([]entity.OverLimitLine, 0)}
	for _, line := range sel.Lines {
		available := live[line.ListingID]
		if entity.Classify(line.RequestedQty, available) == entity.Valid {
			continue
		}
		result.OK = false
		result.OverLimit = append(result.OverLimit, entity.OverLimitLine{
			ListingID:   line.ListingID,
			ProductName: line.ProductName,
			Requested:   line.RequestedQty,
			Available:   available,
		})
	}
	for _, item := range extra {
		available := live[item.Listing.ID]
		if entity.Classify(item.Quantity, available) == entity.Valid {
			continue
		}
		result.OK = false
		result.OverLimit = append(result.OverLimit, entity.OverLimitLine{
			ListingID:   item.Listing.ID,
			ProductName: item.ProductName,
			Requested:   item.Quantity,
			Available:   available,
		})
	}
	if !result.OK {
		r.log.Warnf("Checkout refused, %d line(s) over live stock", len(result.OverLimit))
	}
	return result, nil
}

func (r *checkoutReconciler) fetchCart(ctx context.Context, cartID string) (*entity.Cart, error) {
	cart, err := r.carts.Get(ctx, cartID)
	if err != nil {
		r.log.Errorf("Error fetching cart before purchase: %v", err)
		return nil, fmt.Errorf("could not fetch cart: %w", err)
	}
	return cart, nil
}

// unselectedItems returns the cart items no selection line points at.
func unselectedItems(cart *entity.Cart, sel entity.PurchaseSelection) []entity.CartItem {
	selected := make(map[string]struct{}, len(sel.Lines))
	for _, line := range sel.Lines {
		selected[line.ListingID] = struct{}{}
	}
	var out []entity.CartItem
	for _, item := range cart.Items {
		if _, ok := selected[item.Listing.ID]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// align makes the remote cart hold exactly the selection before purchase.
// The purchase endpoint buys the whole cart, so any other line refuses the commit.
// cart is fetched when nil.
func (r *checkoutReconciler) align(ctx context.Context, sel entity.PurchaseSelection, cart *entity.Cart) error {
	const op = "checkout.align"
	if cart == nil {
		var err error
		if cart, err = r.fetchCart(ctx, sel.CartID); err != nil {
			return err
		}
	}

	type update struct {
		cartItemID string
		quantity   int
	}
	var (
		updates []update
		adds    []entity.SelectionLine
	)

	selected := make(map[string]struct{}, len(sel.Lines))
	for _, line := range sel.Lines {
		item, idx := cart.ItemByListing(line.ListingID)
		if sel.Source == entity.SourceCart {
			if idx < 0 || item.CartItemID != line.CartItemID {
				r.log.Warnf("Cart no longer holds selected item %s", line.CartItemID)
				return apperr.ValidationErr(op, ErrSelectionDiverged)
			}
		}
		if idx < 0 {
			adds = append(adds, line)
			continue
		}
		selected[item.CartItemID] = struct{}{}
		if item.Quantity != line.RequestedQty {
			updates = append(updates, update{cartItemID: item.CartItemID, quantity: line.RequestedQty})
		}
	}
	for _, item := range cart.Items {
		if _, ok := selected[item.CartItemID]; !ok {
			r.log.Warnf("Cart holds unselected item %s (listing %s)", item.CartItemID, item.Listing.ID)
			return apperr.ValidationErr(op, ErrSelectionDiverged)
		}
	}

	for _, u := range updates {
		if _, err := r.carts.UpdateQuantity(ctx, sel.CartID, u.cartItemID, u.quantity); err != nil {
			r.log.Errorf("Error aligning cart item %s: %v", u.cartItemID, err)
			return fmt.Errorf("could not update cart before purchase: %w", err)
		}
	}
	for _, line := range adds {
		if _, err := r.carts.AddItem(ctx, sel.CartID, line.ListingID, line.RequestedQty); err != nil {
			r.log.Errorf("Error staging listing %s for purchase: %v", line.ListingID, err)
			return fmt.Errorf("could not stage item for purchase: %w", err)
		}
	}
	return nil
}

func (r *checkoutReconciler) receipt(sel entity.PurchaseSelection, res *repository.PurchaseResult) *entity.PurchaseReceipt {
	receipt := &entity.PurchaseReceipt{
		ID:          uuid.NewString(),
		CartID:      sel.CartID,
		CustomerID:  r.sess.CustomerID,
		Items:       make([]entity.PurchasedItem, 0, len(sel.Lines)),
		Total:       sel.Total().InexactFloat64(),
		PurchasedAt: time.Now().UTC(),
	}
	if res != nil {
		receipt.Message = res.Message
	}
	if res == nil || len(res.Items) == 0 {
		for _, line := range sel.Lines {
			receipt.Items = append(receipt.Items, entity.PurchasedItem{
				ListingID:   line.ListingID,
				ProductName: line.ProductName,
				Qty:         line.RequestedQty,
				UnitPrice:   line.UnitPrice,
			})
		}
		return receipt
	}
	for _, item := range res.Items {
		for _, line := range sel.Lines {
			if strings.EqualFold(line.ProductName, item.ProductName) {
				item.ListingID = line.ListingID
				item.UnitPrice = line.UnitPrice
				break
			}
		}
		receipt.Items = append(receipt.Items, item)
	}
	return receipt
}

func (r *checkoutReconciler) journalPurchase(ctx context.Context, sel entity.PurchaseSelection, receipt *entity.PurchaseReceipt) {
	if r.journal == nil {
		return
	}
	if err := r.journal.SaveReceipt(ctx, *receipt); err != nil {
		r.log.Warnf("Failed to save receipt %s: %v", receipt.ID, err)
	}
	for _, line := range sel.Lines {
		err := r.journal.RecordAction(ctx, entity.CustomerAction{
			CustomerID:    r.sess.CustomerID,
			CartID:        sel.CartID,
			ListingID:     line.ListingID,
			Action:        entity.ActionPurchase,
			Quantity:      line.RequestedQty,
			PriceAtAction: line.UnitPrice,
			StockAtAction: line.StockSnapshot,
			At:            receipt.PurchasedAt,
		})
		if err != nil {
			r.log.Warnf("Failed to journal purchase of listing %s: %v", line.ListingID, err)
		}
	}
}
