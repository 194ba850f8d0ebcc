package entity

import (
	"github.com/shopspring/decimal"
)

type SelectionSource string

const (
	SourceCart   SelectionSource = "cart"
	SourceSingle SelectionSource = "listing"
)

// SelectionLine is a frozen view of one line being checked out.
// CartItemID is empty for buy-now lines.
type SelectionLine struct {
	CartItemID    string  `json:"cart_item_id,omitempty"`
	ListingID     string  `json:"listing_id"`
	ProductName   string  `json:"product_name"`
	UnitPrice     float64 `json:"unit_price"`
	StockSnapshot int     `json:"stock_snapshot"`
	RequestedQty  int     `json:"requested_qty"`
}

func (l SelectionLine) Total() decimal.Decimal {
	return decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.RequestedQty))).Round(2)
}

// PurchaseSelection is a value: edits return a new selection.
type PurchaseSelection struct {
	Source SelectionSource `json:"source"`
	CartID string          `json:"cart_id"`
	Lines  []SelectionLine `json:"lines"`
}

func (s PurchaseSelection) Empty() bool {
	return len(s.Lines) == 0
}

func (s PurchaseSelection) Line(listingID string) (SelectionLine, bool) {
	for _, l := range s.Lines {
		if l.ListingID == listingID {
			return l, true
		}
	}
	return SelectionLine{}, false
}

func (s PurchaseSelection) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// WithQuantity returns a copy with one line's requested quantity changed.
// ok is false when the listing is not in the selection.
func (s PurchaseSelection) WithQuantity(listingID string, qty int) (PurchaseSelection, bool) {
	out := s.clone()
	for i := range out.Lines {
		if out.Lines[i].ListingID == listingID {
			out.Lines[i].RequestedQty = qty
			return out, true
		}
	}
	return s, false
}

func (s PurchaseSelection) Without(listingID string) (PurchaseSelection, bool) {
	out := PurchaseSelection{Source: s.Source, CartID: s.CartID, Lines: make([]SelectionLine, 0, len(s.Lines))}
	found := false
	for _, l := range s.Lines {
		if l.ListingID == listingID {
			found = true
			continue
		}
		out.Lines = append(out.Lines, l)
	}
	if !found {
		return s, false
	}
	return out, true
}

func (s PurchaseSelection) clone() PurchaseSelection {
	return PurchaseSelection{
		Source: s.Source,
		CartID: s.CartID,
		Lines:  append(make([]SelectionLine, 0, len(s.Lines)), s.Lines...),
	}
}

// Clone copies the line slice.
func (s PurchaseSelection) Clone() PurchaseSelection {
	return s.clone()
}
