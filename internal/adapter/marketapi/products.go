package marketapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
)

type productRepository struct {
	client *Client
}

func NewProductRepository(client *Client) repository.ProductRepository {
	return &productRepository{client: client}
}

func (r *productRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Product, error) {
	var out productList
	query := url.Values{"farmer_id": []string{ownerID}}
	if err := r.client.do(ctx, "products.list", http.MethodGet, "products", query, nil, &out); err != nil {
		return nil, err
	}
	products := make([]entity.Product, 0, len(out))
	for i := range out {
		products = append(products, out[i].toEntity())
	}
	return products, nil
}

func (r *productRepository) Upsert(ctx context.Context, p entity.Product) (*entity.Product, error) {
	req := productRequest{
		Farmer:   p.OwnerID,
		Name:     p.CropName,
		Quantity: p.QuantityKg,
		ReapDate: p.ReapDate,
	}
	var out productDTO
	if err := r.client.do(ctx, "products.upsert", http.MethodPost, "products", nil, req, &out); err != nil {
		return nil, err
	}
	stored := out.toEntity()
	if stored.OwnerID == "" {
		stored.OwnerID = p.OwnerID
	}
	return &stored, nil
}
