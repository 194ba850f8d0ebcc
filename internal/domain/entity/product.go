package entity

import (
	"errors"
	"strings"
	"time"
)

// ReapDateLayout is the wire and CSV format of harvest dates.
const ReapDateLayout = "2006-01-02"

// Product is a farmer's harvested lot. QuantityKg is what is left to list.
type Product struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id"`
	CropName   string  `json:"crop_name"`
	QuantityKg float64 `json:"quantity_kg"`
	ReapDate   string  `json:"reap_date"`
}

func NewProduct(ownerID, cropName string, quantityKg float64, reapDate string) (*Product, error) {
	cropName = strings.TrimSpace(cropName)
	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty for product")
	}
	if cropName == "" {
		return nil, errors.New("crop name cannot be empty")
	}
	if quantityKg <= 0 {
		return nil, errors.New("product quantity must be positive")
	}
	if _, err := time.Parse(ReapDateLayout, reapDate); err != nil {
		return nil, errors.New("reap date must be in YYYY-MM-DD format")
	}
	return &Product{
		OwnerID:    ownerID,
		CropName:   cropName,
		QuantityKg: quantityKg,
		ReapDate:   reapDate,
	}, nil
}

// SameLot reports whether two products share the (crop, reap date) key.
// Crop names compare case-insensitively.
func (p Product) SameLot(cropName, reapDate string) bool {
	return strings.EqualFold(strings.TrimSpace(p.CropName), strings.TrimSpace(cropName)) && p.ReapDate == reapDate
}

// MergeProduct applies the replace-or-insert rule to a most-recent-first slice.
// A product with the same lot replaces the stored quantity in place; otherwise
// it is prepended. The input slice is not modified.
func MergeProduct(products []Product, p Product) []Product {
	out := make([]Product, 0, len(products)+1)
	replaced := false
	for _, existing := range products {
		if !replaced && existing.SameLot(p.CropName, p.ReapDate) {
			existing.QuantityKg = p.QuantityKg
			if p.ID != "" {
				existing.ID = p.ID
			}
			replaced = true
		}
		out = append(out, existing)
	}
	if replaced {
		return out
	}
	return append([]Product{p}, out...)
}
