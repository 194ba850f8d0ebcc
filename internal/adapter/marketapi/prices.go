package marketapi

import (
	"context"
	"net/http"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
)

type cropPriceFeed struct {
	client *Client
}

func NewCropPriceFeed(client *Client) repository.CropPriceFeed {
	return &cropPriceFeed{client: client}
}

func (f *cropPriceFeed) ListCropPrices(ctx context.Context) ([]entity.CropPrice, error) {
	var out cropPriceList
	if err := f.client.do(ctx, "crop_prices.list", http.MethodGet, "crop-prices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toEntities(), nil
}
