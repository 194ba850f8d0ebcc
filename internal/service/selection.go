package service

import (
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
)

// SelectionBuilder freezes what the buyer is about to check out. Selections
// never write back to the cart or the catalog.
type SelectionBuilder interface {
	FromCart(cart *entity.Cart) entity.PurchaseSelection
	FromSingleListing(cartID string, listing entity.MarketListing, quantity int) entity.PurchaseSelection
}

type selectionBuilder struct {
	log logger.Logger
}

func NewSelectionBuilder(log logger.Logger) SelectionBuilder {
	return &selectionBuilder{log: log}
}

// FromCart keeps in-stock items only; the cart view reports the rest.
func (b *selectionBuilder) FromCart(cart *entity.Cart) entity.PurchaseSelection {
	sel := entity.PurchaseSelection{Source: entity.SourceCart, Lines: make([]entity.SelectionLine, 0)}
	if cart == nil {
		return sel
	}
	sel.CartID = cart.CartID
	for _, item := range cart.ValidItems() {
		sel.Lines = append(sel.Lines, entity.SelectionLine{
			CartItemID:    item.CartItemID,
			ListingID:     item.Listing.ID,
			ProductName:   item.ProductName,
			UnitPrice:     item.Listing.Price,
			StockSnapshot: item.Listing.Stock,
			RequestedQty:  item.Quantity,
		})
	}
	if skipped := len(cart.Items) - len(sel.Lines); skipped > 0 {
		b.log.Debugf("Selection from cart %s left out %d over-stock item(s)", cart.CartID, skipped)
	}
	return sel
}

func (b *selectionBuilder) FromSingleListing(cartID string, listing entity.MarketListing, quantity int) entity.PurchaseSelection {
	if quantity <= 0 {
		quantity = 1
	}
	return entity.PurchaseSelection{
		Source: entity.SourceSingle,
		CartID: cartID,
		Lines: []entity.SelectionLine{{
			ListingID:     listing.ID,
			ProductName:   listing.ProductName,
			UnitPrice:     listing.UnitPrice,
			StockSnapshot: listing.StockUnits,
			RequestedQty:  quantity,
		}},
	}
}
