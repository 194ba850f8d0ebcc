package entity

import (
	"github.com/shopspring/decimal"
)

// ListingRef is the listing state the cart API embeds in every item.
type ListingRef struct {
	ID       string  `json:"id"`
	Stock    int     `json:"stock"`
	Price    float64 `json:"price"`
	Discount float64 `json:"discount"`
}

type CartItem struct {
	CartItemID  string     `json:"cart_item_id"`
	ProductName string     `json:"product_name"`
	Price       float64    `json:"price"`
	Quantity    int        `json:"quantity"`
	TotalPrice  float64    `json:"total_price"`
	Listing     ListingRef `json:"listing"`
}

type Classification int

const (
	Valid Classification = iota
	Invalid
)

func (c Classification) String() string {
	if c == Valid {
		return "valid"
	}
	return "invalid"
}

// Classify puts a requested quantity against the stock it draws from.
func Classify(requested, stock int) Classification {
	if requested <= stock {
		return Valid
	}
	return Invalid
}

func (i CartItem) Classification() Classification {
	return Classify(i.Quantity, i.Listing.Stock)
}

// LineTotal is the listing price times quantity, rounded to cents.
func (i CartItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Listing.Price).Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

type Cart struct {
	CartID     string     `json:"cart_id"`
	CustomerID string     `json:"customer_id"`
	Items      []CartItem `json:"items"`
	TotalPrice float64    `json:"total_price"`
}

func NewCart(cartID string) *Cart {
	return &Cart{
		CartID: cartID,
		Items:  make([]CartItem, 0),
	}
}

func (c *Cart) GetItem(cartItemID string) (*CartItem, int) {
	if c == nil {
		return nil, -1
	}
	for i, item := range c.Items {
		if item.CartItemID == cartItemID {
			return &c.Items[i], i
		}
	}
	return nil, -1
}

func (c *Cart) ItemByListing(listingID string) (*CartItem, int) {
	if c == nil {
		return nil, -1
	}
	for i, item := range c.Items {
		if item.Listing.ID == listingID {
			return &c.Items[i], i
		}
	}
	return nil, -1
}

// Clone returns a deep copy so callers cannot reach the cached items.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append(make([]CartItem, 0, len(c.Items)), c.Items...)
	return &cp
}

func (c *Cart) ValidItems() []CartItem {
	return c.partition(Valid)
}

func (c *Cart) InvalidItems() []CartItem {
	return c.partition(Invalid)
}

// ValidTotal sums listing price times quantity over valid items only.
func (c *Cart) ValidTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.ValidItems() {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) partition(want Classification) []CartItem {
	out := make([]CartItem, 0)
	if c == nil {
		return out
	}
	for _, item := range c.Items {
		if item.Classification() == want {
			out = append(out, item)
		}
	}
	return out
}
