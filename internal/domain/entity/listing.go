package entity

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type MarketListing struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name"`
	WeightPerUnit   float64   `json:"weight_per_unit"`
	StockUnits      int       `json:"stock_units"`
	DiscountPercent float64   `json:"discount_percent"`
	UnitPrice       float64   `json:"unit_price"`
	DateAdded       time.Time `json:"date_added"`
}

// Purchasable is false once stock has run out.
func (l MarketListing) Purchasable() bool {
	return l.StockUnits > 0
}

// ListingDraft is a listing not yet accepted by the catalog API.
type ListingDraft struct {
	OwnerID         string
	Product         Product
	WeightPerUnit   float64
	StockUnits      int
	DiscountPercent float64
}

var (
	ErrInvalidWeight   = errors.New("weight per unit must be positive")
	ErrInvalidStock    = errors.New("stock must be at least 1 unit")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
)

func (d ListingDraft) Validate() error {
	if d.WeightPerUnit <= 0 {
		return ErrInvalidWeight
	}
	if d.StockUnits < 1 {
		return ErrInvalidStock
	}
	if d.DiscountPercent < 0 || d.DiscountPercent > 100 {
		return ErrInvalidDiscount
	}
	return nil
}

// TotalWeight is the product weight the draft would consume.
func (d ListingDraft) TotalWeight() decimal.Decimal {
	return decimal.NewFromFloat(d.WeightPerUnit).Mul(decimal.NewFromInt(int64(d.StockUnits)))
}

// Fits reports whether the draft stays within the product's remaining quantity.
func (d ListingDraft) Fits() bool {
	return d.TotalWeight().LessThanOrEqual(decimal.NewFromFloat(d.Product.QuantityKg))
}

// UnitPrice computes weight * base * (1 - discount/100) rounded to cents.
func UnitPrice(weightPerUnit float64, basePerKg decimal.Decimal, discountPercent float64) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	factor := hundred.Sub(decimal.NewFromFloat(discountPercent)).Div(hundred)
	return decimal.NewFromFloat(weightPerUnit).Mul(basePerKg).Mul(factor).Round(2)
}

// CropPrice is one row of the external price feed.
type CropPrice struct {
	Crop      string          `json:"crop"`
	Year      int             `json:"year"`
	BasePrice decimal.Decimal `json:"base_price"`
}
