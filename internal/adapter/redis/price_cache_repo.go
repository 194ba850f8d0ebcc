package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/redis/go-redis/v9"
)

const cropPricesKey = "crop_prices:feed"

type cropPriceCacheRepository struct {
	client redis.Cmdable
}

func NewCropPriceCacheRepository(client redis.Cmdable) repository.CropPriceCache {
	return &cropPriceCacheRepository{client: client}
}

func (r *cropPriceCacheRepository) Get(ctx context.Context) ([]entity.CropPrice, error) {
	val, err := r.client.Get(ctx, cropPricesKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get crop prices from redis: %w", err)
	}

	var prices []entity.CropPrice
	if err := json.Unmarshal(val, &prices); err != nil {
		_ = r.Delete(ctx)
		return nil, fmt.Errorf("failed to unmarshal cached crop prices: %w", err)
	}
	return prices, nil
}

func (r *cropPriceCacheRepository) Set(ctx context.Context, prices []entity.CropPrice, ttl time.Duration) error {
	data, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("failed to marshal crop prices: %w", err)
	}
	if err := r.client.Set(ctx, cropPricesKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache crop prices in redis: %w", err)
	}
	return nil
}

func (r *cropPriceCacheRepository) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, cropPricesKey).Err(); err != nil {
		return fmt.Errorf("failed to delete crop prices from redis: %w", err)
	}
	return nil
}
