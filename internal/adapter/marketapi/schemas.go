package marketapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type validator interface {
	validate() error
}

// flexID accepts numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

func requireFields(kind string, missing ...string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%s: missing %s", kind, strings.Join(missing, ", "))
}

// Products.

type productRequest struct {
	Farmer   string  `json:"farmer"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	ReapDate string  `json:"reap_date"`
}

type productDTO struct {
	ID       flexID              `json:"id"`
	Farmer   flexID              `json:"farmer"`
	Name     *string             `json:"name"`
	Quantity decimal.NullDecimal `json:"quantity"`
	ReapDate *string             `json:"reap_date"`
}

func (p *productDTO) validate() error {
	var missing []string
	if p.ID == "" {
		missing = append(missing, "id")
	}
	if p.Name == nil {
		missing = append(missing, "name")
	}
	if !p.Quantity.Valid {
		missing = append(missing, "quantity")
	}
	if p.ReapDate == nil {
		missing = append(missing, "reap_date")
	}
	return requireFields("product", missing...)
}

func (p *productDTO) toEntity() entity.Product {
	qty, _ := p.Quantity.Decimal.Float64()
	return entity.Product{
		ID:         p.ID.String(),
		OwnerID:    p.Farmer.String(),
		CropName:   *p.Name,
		QuantityKg: qty,
		ReapDate:   *p.ReapDate,
	}
}

type productList []productDTO

func (l *productList) validate() error {
	for i := range *l {
		if err := (*l)[i].validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Market listings.

type listingRequest struct {
	Farmer      string  `json:"farmer"`
	Product     string  `json:"product"`
	ProductName string  `json:"product_name"`
	Weight      float64 `json:"weight"`
	Stock       int     `json:"stock"`
	Discount    float64 `json:"discount"`
}

type listingDTO struct {
	ID          flexID              `json:"id"`
	Farmer      flexID              `json:"farmer"`
	Product     flexID              `json:"product"`
	ProductName *string             `json:"product_name"`
	Weight      decimal.NullDecimal `json:"weight"`
	Stock       *int                `json:"stock"`
	Discount    decimal.NullDecimal `json:"discount"`
	Price       decimal.NullDecimal `json:"price"`
	DateAdded   string              `json:"date_added"`
}

func (l *listingDTO) validate() error {
	var missing []string
	if l.ID == "" {
		missing = append(missing, "id")
	}
	if l.ProductName == nil {
		missing = append(missing, "product_name")
	}
	if !l.Weight.Valid {
		missing = append(missing, "weight")
	}
	if l.Stock == nil {
		missing = append(missing, "stock")
	}
	if !l.Price.Valid {
		missing = append(missing, "price")
	}
	if err := requireFields("listing", missing...); err != nil {
		return err
	}
	if l.DateAdded != "" {
		if _, err := parseWireTime(l.DateAdded); err != nil {
			return fmt.Errorf("listing %s: %w", l.ID, err)
		}
	}
	return nil
}

func (l *listingDTO) toEntity() entity.MarketListing {
	weight, _ := l.Weight.Decimal.Float64()
	discount, _ := l.Discount.Decimal.Float64()
	price, _ := l.Price.Decimal.Round(2).Float64()
	added, _ := parseWireTime(l.DateAdded)
	return entity.MarketListing{
		ID:              l.ID.String(),
		OwnerID:         l.Farmer.String(),
		ProductID:       l.Product.String(),
		ProductName:     *l.ProductName,
		WeightPerUnit:   weight,
		StockUnits:      *l.Stock,
		DiscountPercent: discount,
		UnitPrice:       price,
		DateAdded:       added,
	}
}

type listingList []listingDTO

func (l *listingList) validate() error {
	for i := range *l {
		if err := (*l)[i].validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

var wireTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", entity.ReapDateLayout}

func parseWireTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Crop prices.

type cropPriceDTO struct {
	Crop           *string             `json:"crop"`
	Year           int                 `json:"year"`
	SyntheticPrice decimal.NullDecimal `json:"synthetic_price"`
}

type cropPriceList []cropPriceDTO

func (l *cropPriceList) validate() error {
	for i, row := range *l {
		if row.Crop == nil {
			return fmt.Errorf("crop price %d: missing crop", i)
		}
	}
	return nil
}

// toEntities drops rows the feed has no price for.
func (l cropPriceList) toEntities() []entity.CropPrice {
	out := make([]entity.CropPrice, 0, len(l))
	for _, row := range l {
		if !row.SyntheticPrice.Valid {
			continue
		}
		out = append(out, entity.CropPrice{Crop: *row.Crop, Year: row.Year, BasePrice: row.SyntheticPrice.Decimal})
	}
	return out
}

// Carts.

type addItemRequest struct {
	MarketItemID string `json:"market_item_id"`
	Quantity     int    `json:"quantity"`
}

type itemQuantityRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type itemRequest struct {
	ItemID string `json:"item_id"`
}

type marketRefDTO struct {
	ID       flexID              `json:"id"`
	Stock    *int                `json:"stock"`
	Price    decimal.NullDecimal `json:"price"`
	Discount decimal.NullDecimal `json:"discount"`
}

type cartItemDTO struct {
	CartItemID  flexID              `json:"cart_item_id"`
	ProductName string              `json:"product_name"`
	Price       decimal.NullDecimal `json:"price"`
	Quantity    *int                `json:"quantity"`
	TotalPrice  decimal.NullDecimal `json:"total_price"`
	MarketItems *marketRefDTO       `json:"market_items"`
}

type cartDTO struct {
	CartID     flexID              `json:"cart_id"`
	Customer   flexID              `json:"customer"`
	Items      *[]cartItemDTO      `json:"items"`
	TotalPrice decimal.NullDecimal `json:"total_price"`
}

func (c *cartDTO) validate() error {
	var missing []string
	if c.CartID == "" {
		missing = append(missing, "cart_id")
	}
	if c.Items == nil {
		missing = append(missing, "items")
	}
	if err := requireFields("cart", missing...); err != nil {
		return err
	}
	for i, item := range *c.Items {
		missing = missing[:0]
		if item.CartItemID == "" {
			missing = append(missing, "cart_item_id")
		}
		if item.Quantity == nil {
			missing = append(missing, "quantity")
		}
		if item.MarketItems == nil {
			missing = append(missing, "market_items")
		} else {
			if item.MarketItems.ID == "" {
				missing = append(missing, "market_items.id")
			}
			if item.MarketItems.Stock == nil {
				missing = append(missing, "market_items.stock")
			}
			if !item.MarketItems.Price.Valid {
				missing = append(missing, "market_items.price")
			}
		}
		if err := requireFields(fmt.Sprintf("cart item %d", i), missing...); err != nil {
			return err
		}
	}
	return nil
}

func (c *cartDTO) toEntity() *entity.Cart {
	cart := entity.NewCart(c.CartID.String())
	cart.CustomerID = c.Customer.String()
	cart.TotalPrice, _ = c.TotalPrice.Decimal.Round(2).Float64()
	for _, item := range *c.Items {
		ref := item.MarketItems
		listingPrice, _ := ref.Price.Decimal.Round(2).Float64()
		discount, _ := ref.Discount.Decimal.Float64()
		price := listingPrice
		if item.Price.Valid {
			price, _ = item.Price.Decimal.Round(2).Float64()
		}
		total, _ := item.TotalPrice.Decimal.Round(2).Float64()
		cart.Items = append(cart.Items, entity.CartItem{
			CartItemID:  item.CartItemID.String(),
			ProductName: item.ProductName,
			Price:       price,
			Quantity:    *item.Quantity,
			TotalPrice:  total,
			Listing: entity.ListingRef{
				ID:       ref.ID.String(),
				Stock:    *ref.Stock,
				Price:    listingPrice,
				Discount: discount,
			},
		})
	}
	return cart
}

type purchasedItemDTO struct {
	Product string `json:"product"`
	Qty     int    `json:"qty"`
}

type purchaseDTO struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	PurchasedItems []purchasedItemDTO `json:"purchased_items"`
}

func (p *purchaseDTO) validate() error {
	if !p.Success {
		return errors.New("purchase: success flag not set")
	}
	return nil
}

// Errors.

type invalidItemDTO struct {
	Product   string `json:"product"`
	Requested int    `json:"requested"`
	Stock     int    `json:"stock"`
}

type errorDTO struct {
	Error        string           `json:"error"`
	Detail       string           `json:"detail"`
	Message      string           `json:"message"`
	InvalidItems []invalidItemDTO `json:"invalid_items"`
}

func (e errorDTO) message() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Detail != "":
		return e.Detail
	default:
		return e.Message
	}
}

// Accounts.

type customerDTO struct {
	CustomerID flexID `json:"customer_id"`
	UserID     flexID `json:"user_id"`
	Email      string `json:"email"`
	CartID     flexID `json:"cart_id"`
	Name       string `json:"name"`
}

func (c *customerDTO) validate() error {
	var missing []string
	if c.CustomerID == "" {
		missing = append(missing, "customer_id")
	}
	if c.CartID == "" {
		missing = append(missing, "cart_id")
	}
	return requireFields("customer", missing...)
}

type farmerDTO struct {
	FarmerID flexID `json:"farmer_id"`
}

func (f *farmerDTO) validate() error {
	if f.FarmerID == "" {
		return errors.New("farmer: missing farmer_id")
	}
	return nil
}
