package repository

import (
	"context"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
)

type ProductRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]entity.Product, error)
	// Upsert returns the product as the server stored it.
	Upsert(ctx context.Context, p entity.Product) (*entity.Product, error)
}

type ListingRepository interface {
	List(ctx context.Context) ([]entity.MarketListing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]entity.MarketListing, error)
	Create(ctx context.Context, draft entity.ListingDraft) (*entity.MarketListing, error)
	Delete(ctx context.Context, listingID string) error
}

type CropPriceFeed interface {
	ListCropPrices(ctx context.Context) ([]entity.CropPrice, error)
}

// CropPriceCache returns ErrNotFound on a miss.
type CropPriceCache interface {
	Get(ctx context.Context) ([]entity.CropPrice, error)
	Set(ctx context.Context, prices []entity.CropPrice, ttl time.Duration) error
	Delete(ctx context.Context) error
}

type PurchaseResult struct {
	Message string
	Items   []entity.PurchasedItem
}

// CartRepository is the remote cart resource. Every mutation returns the
// full cart as the server holds it afterwards.
type CartRepository interface {
	Get(ctx context.Context, cartID string) (*entity.Cart, error)
	AddItem(ctx context.Context, cartID, listingID string, quantity int) (*entity.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, cartItemID string, quantity int) (*entity.Cart, error)
	RemoveItem(ctx context.Context, cartID, cartItemID string) (*entity.Cart, error)
	Purchase(ctx context.Context, cartID string) (*PurchaseResult, error)
}

type AccountDirectory interface {
	CustomerByUserID(ctx context.Context, userID string) (*entity.Customer, error)
	FarmerIDByUserID(ctx context.Context, userID string) (string, error)
}

type JournalRepository interface {
	RecordAction(ctx context.Context, action entity.CustomerAction) error
	SaveReceipt(ctx context.Context, receipt entity.PurchaseReceipt) error
	ReceiptsByCustomer(ctx context.Context, customerID string, limit int64) ([]entity.PurchaseReceipt, error)
}
