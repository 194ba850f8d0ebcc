package marketapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
)

type listingRepository struct {
	client *Client
}

func NewListingRepository(client *Client) repository.ListingRepository {
	return &listingRepository{client: client}
}

func (r *listingRepository) List(ctx context.Context) ([]entity.MarketListing, error) {
	return r.list(ctx, "market.list", nil)
}

func (r *listingRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.MarketListing, error) {
	return r.list(ctx, "market.list_owner", url.Values{"farmer_id": []string{ownerID}})
}

func (r *listingRepository) list(ctx context.Context, op string, query url.Values) ([]entity.MarketListing, error) {
	var out listingList
	if err := r.client.do(ctx, op, http.MethodGet, "market", query, nil, &out); err != nil {
		return nil, err
	}
	listings := make([]entity.MarketListing, 0, len(out))
	for i := range out {
		listings = append(listings, out[i].toEntity())
	}
	return listings, nil
}

func (r *listingRepository) Create(ctx context.Context, draft entity.ListingDraft) (*entity.MarketListing, error) {
	req := listingRequest{
		Farmer:      draft.OwnerID,
		Product:     draft.Product.ID,
		ProductName: draft.Product.CropName,
		Weight:      draft.WeightPerUnit,
		Stock:       draft.StockUnits,
		Discount:    draft.DiscountPercent,
	}
	var out listingDTO
	if err := r.client.do(ctx, "market.create", http.MethodPost, "market", nil, req, &out); err != nil {
		return nil, err
	}
	listing := out.toEntity()
	return &listing, nil
}

func (r *listingRepository) Delete(ctx context.Context, listingID string) error {
	return r.client.do(ctx, "market.delete", http.MethodDelete, "market/"+url.PathEscape(listingID), nil, nil, nil)
}
