package service

import (
	"context"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Product, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockProductRepository) Upsert(ctx context.Context, p entity.Product) (*entity.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) List(ctx context.Context) ([]entity.MarketListing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MarketListing), args.Error(1)
}

func (m *MockListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.MarketListing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MarketListing), args.Error(1)
}

func (m *MockListingRepository) Create(ctx context.Context, draft entity.ListingDraft) (*entity.MarketListing, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MarketListing), args.Error(1)
}

func (m *MockListingRepository) Delete(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

type MockCropPriceFeed struct {
	mock.Mock
}

func (m *MockCropPriceFeed) ListCropPrices(ctx context.Context) ([]entity.CropPrice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CropPrice), args.Error(1)
}

type MockCropPriceCache struct {
	mock.Mock
}

func (m *MockCropPriceCache) Get(ctx context.Context) ([]entity.CropPrice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CropPrice), args.Error(1)
}

func (m *MockCropPriceCache) Set(ctx context.Context, prices []entity.CropPrice, ttl time.Duration) error {
	args := m.Called(ctx, prices, ttl)
	return args.Error(0)
}

func (m *MockCropPriceCache) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) Get(ctx context.Context, cartID string) (*entity.Cart, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Cart), args.Error(1)
}

func (m *MockCartRepository) AddItem(ctx context.Context, cartID, listingID string, quantity int) (*entity.Cart, error) {
	args := m.Called(ctx, cartID, listingID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Cart), args.Error(1)
}

func (m *MockCartRepository) UpdateQuantity(ctx context.Context, cartID, cartItemID string, quantity int) (*entity.Cart, error) {
	args := m.Called(ctx, cartID, cartItemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Cart), args.Error(1)
}

func (m *MockCartRepository) RemoveItem(ctx context.Context, cartID, cartItemID string) (*entity.Cart, error) {
	args := m.Called(ctx, cartID, cartItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Cart), args.Error(1)
}

func (m *MockCartRepository) Purchase(ctx context.Context, cartID string) (*repository.PurchaseResult, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PurchaseResult), args.Error(1)
}

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) RecordAction(ctx context.Context, action entity.CustomerAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockJournalRepository) SaveReceipt(ctx context.Context, receipt entity.PurchaseReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockJournalRepository) ReceiptsByCustomer(ctx context.Context, customerID string, limit int64) ([]entity.PurchaseReceipt, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PurchaseReceipt), args.Error(1)
}

type NoOpLogger struct{}

func (l *NoOpLogger) Debug(args ...interface{})                   {}
func (l *NoOpLogger) Debugf(template string, args ...interface{}) {}
func (l *NoOpLogger) Info(args ...interface{})                    {}
func (l *NoOpLogger) Infof(template string, args ...interface{})  {}
func (l *NoOpLogger) Warn(args ...interface{})                    {}
func (l *NoOpLogger) Warnf(template string, args ...interface{})  {}
func (l *NoOpLogger) Error(args ...interface{})                   {}
func (l *NoOpLogger) Errorf(template string, args ...interface{}) {}
func (l *NoOpLogger) Fatal(args ...interface{})                   {}
func (l *NoOpLogger) Fatalf(template string, args ...interface{}) {}
func (l *NoOpLogger) With(args ...interface{}) logger.Logger      { return l }
func (l *NoOpLogger) Sync() error                                 { return nil }

func NewNoOpLogger() logger.Logger {
	return &NoOpLogger{}
}
