package entity

import (
	"time"
)

type CheckoutState string

const (
	StateBuilding   CheckoutState = "building"
	StateValidating CheckoutState = "validating"
	StateRejected   CheckoutState = "rejected"
	StateCommitting CheckoutState = "committing"
	StateCommitted  CheckoutState = "committed"
	StateFailed     CheckoutState = "failed"
)

// Editable reports whether selection lines may change in this state.
// Rejected and Failed fall back to Building on the next edit.
func (s CheckoutState) Editable() bool {
	return s == StateBuilding || s == StateRejected || s == StateFailed
}

func (s CheckoutState) Terminal() bool {
	return s == StateCommitted
}

// OverLimitLine reports a line asking for more than is in stock.
type OverLimitLine struct {
	ListingID   string `json:"listing_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

type PurchasedItem struct {
	ListingID   string  `json:"listing_id,omitempty"`
	ProductName string  `json:"product_name"`
	Qty         int     `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
}

type PurchaseReceipt struct {
	ID          string          `json:"id" bson:"_id"`
	CartID      string          `json:"cart_id" bson:"cart_id"`
	CustomerID  string          `json:"customer_id" bson:"customer_id"`
	Message     string          `json:"message" bson:"message"`
	Items       []PurchasedItem `json:"items" bson:"items"`
	Total       float64         `json:"total" bson:"total"`
	PurchasedAt time.Time       `json:"purchased_at" bson:"purchased_at"`
}

type Customer struct {
	CustomerID string `json:"customer_id"`
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	CartID     string `json:"cart_id"`
	Name       string `json:"name"`
}

type ActionType string

const (
	ActionAdd      ActionType = "ADD"
	ActionRemove   ActionType = "REMOVE"
	ActionPurchase ActionType = "PURCHASE"
)

// CustomerAction records what the customer saw when acting on a listing.
type CustomerAction struct {
	ID               string     `bson:"_id"`
	CustomerID       string     `bson:"customer_id"`
	CartID           string     `bson:"cart_id"`
	ListingID        string     `bson:"listing_id"`
	Action           ActionType `bson:"action"`
	Quantity         int        `bson:"quantity"`
	PriceAtAction    float64    `bson:"price_at_action"`
	DiscountAtAction float64    `bson:"discount_at_action"`
	StockAtAction    int        `bson:"stock_at_action"`
	At               time.Time  `bson:"at"`
}
