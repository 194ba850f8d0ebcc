package marketapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
)

type cartRepository struct {
	client *Client
}

func NewCartRepository(client *Client) repository.CartRepository {
	return &cartRepository{client: client}
}

func cartPath(cartID string, action string) string {
	p := "cart/" + url.PathEscape(cartID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (r *cartRepository) Get(ctx context.Context, cartID string) (*entity.Cart, error) {
	var out cartDTO
	if err := r.client.do(ctx, "cart.get", http.MethodGet, cartPath(cartID, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toEntity(), nil
}

func (r *cartRepository) AddItem(ctx context.Context, cartID, listingID string, quantity int) (*entity.Cart, error) {
	var out cartDTO
	req := addItemRequest{MarketItemID: listingID, Quantity: quantity}
	if err := r.client.do(ctx, "cart.add_item", http.MethodPost, cartPath(cartID, "add_item"), nil, req, &out); err != nil {
		return nil, err
	}
	return out.toEntity(), nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, cartID, cartItemID string, quantity int) (*entity.Cart, error) {
	var out cartDTO
	req := itemQuantityRequest{ItemID: cartItemID, Quantity: quantity}
	if err := r.client.do(ctx, "cart.update_quantity", http.MethodPost, cartPath(cartID, "update_quantity"), nil, req, &out); err != nil {
		return nil, err
	}
	return out.toEntity(), nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, cartItemID string) (*entity.Cart, error) {
	var out cartDTO
	req := itemRequest{ItemID: cartItemID}
	if err := r.client.do(ctx, "cart.remove_item", http.MethodDelete, cartPath(cartID, "remove_item"), nil, req, &out); err != nil {
		return nil, err
	}
	return out.toEntity(), nil
}

// Purchase commits the whole cart. A rejection listing invalid items is
// reported as a race with the over-limit lines attached.
func (r *cartRepository) Purchase(ctx context.Context, cartID string) (*repository.PurchaseResult, error) {
	var out purchaseDTO
	err := r.client.do(ctx, "cart.purchase", http.MethodPost, cartPath(cartID, "purchase"), nil, nil, &out)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindRejected {
			if body, ok := appErr.Details.(errorDTO); ok && len(body.InvalidItems) > 0 {
				lines := make([]entity.OverLimitLine, 0, len(body.InvalidItems))
				for _, it := range body.InvalidItems {
					lines = append(lines, entity.OverLimitLine{
						ProductName: it.Product,
						Requested:   it.Requested,
						Available:   it.Stock,
					})
				}
				return nil, apperr.Race("cart.purchase", appErr.Message, lines)
			}
		}
		return nil, err
	}

	result := &repository.PurchaseResult{Message: out.Message}
	for _, it := range out.PurchasedItems {
		result.Items = append(result.Items, entity.PurchasedItem{ProductName: it.Product, Qty: it.Qty})
	}
	return result, nil
}
