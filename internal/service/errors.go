package service

import "errors"

var (
	ErrMutationInFlight    = errors.New("a change to this cart item is still in progress")
	ErrStoreClosed         = errors.New("cart view is closed")
	ErrItemNotInCart       = errors.New("item not found in cart")
	ErrQuantityBelowOne    = errors.New("quantity cannot go below 1")
	ErrQuantityAboveStock  = errors.New("quantity exceeds available stock")
	ErrInsufficientProduct = errors.New("not enough product quantity for this listing")
	ErrProductNotFound     = errors.New("product not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrIllegalTransition   = errors.New("operation not allowed in the current checkout state")
	ErrEmptySelection      = errors.New("no items selected for purchase")
	ErrSelectionDiverged   = errors.New("cart no longer matches the checkout selection")
	ErrOverLimit           = errors.New("some items exceed stock")
	ErrLineNotSelected     = errors.New("listing is not part of this checkout")
	ErrNoSignalBus         = errors.New("no cart signal bus configured")
	ErrCheckoutNotFound    = errors.New("checkout session not found")
)
