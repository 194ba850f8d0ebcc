package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/session"
	"github.com/shopspring/decimal"
)

// ProductRow is one candidate row of a bulk upload, as read from the source.
type ProductRow struct {
	Line     int
	CropName string
	Quantity string
	ReapDate string
}

type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type BulkResult struct {
	Accepted int        `json:"accepted"`
	Rejected []RowError `json:"rejected"`
}

type InventoryLedger interface {
	Products(ctx context.Context, sess session.Session) ([]entity.Product, error)
	Product(ctx context.Context, sess session.Session, productID string) (*entity.Product, error)
	UpsertProduct(ctx context.Context, sess session.Session, cropName string, quantityKg float64, reapDate string) (*entity.Product, error)
	BulkUpload(ctx context.Context, sess session.Session, rows []ProductRow) (BulkResult, error)
	// Consume lowers the cached quantity after a listing was accepted.
	Consume(ownerID, productID string, kg decimal.Decimal)
	Invalidate(ownerID string)
}

type inventoryLedger struct {
	products repository.ProductRepository
	log      logger.Logger

	mu    sync.RWMutex
	cache map[string][]entity.Product
}

func NewInventoryLedger(products repository.ProductRepository, log logger.Logger) InventoryLedger {
	return &inventoryLedger{
		products: products,
		log:      log,
		cache:    make(map[string][]entity.Product),
	}
}

func (l *inventoryLedger) Products(ctx context.Context, sess session.Session) ([]entity.Product, error) {
	if err := sess.RequireFarmer(); err != nil {
		return nil, apperr.ValidationErr("ledger.products", err)
	}
	l.log.Infof("Fetching products: FarmerID=%s", sess.FarmerID)
	products, err := l.products.ListByOwner(ctx, sess.FarmerID)
	if err != nil {
		l.log.Errorf("Error fetching products for farmer %s: %v", sess.FarmerID, err)
		return nil, fmt.Errorf("could not fetch products: %w", err)
	}

	l.mu.Lock()
	l.cache[sess.FarmerID] = products
	l.mu.Unlock()
	return copyProducts(products), nil
}

func (l *inventoryLedger) Product(ctx context.Context, sess session.Session, productID string) (*entity.Product, error) {
	if p, ok := l.cached(sess.FarmerID, productID); ok {
		return &p, nil
	}
	products, err := l.Products(ctx, sess)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == productID {
			return &p, nil
		}
	}
	return nil, apperr.ValidationErr("ledger.product", ErrProductNotFound)
}

func (l *inventoryLedger) UpsertProduct(ctx context.Context, sess session.Session, cropName string, quantityKg float64, reapDate string) (*entity.Product, error) {
	const op = "ledger.upsert"
	if err := sess.RequireFarmer(); err != nil {
		return nil, apperr.ValidationErr(op, err)
	}
	candidate, err := entity.NewProduct(sess.FarmerID, cropName, quantityKg, reapDate)
	if err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	l.log.Infof("Upserting product: FarmerID=%s, Crop=%s, ReapDate=%s, Quantity=%.2f", sess.FarmerID, candidate.CropName, reapDate, quantityKg)
	stored, err := l.products.Upsert(ctx, *candidate)
	if err != nil {
		l.log.Errorf("Error upserting product %s for farmer %s: %v", candidate.CropName, sess.FarmerID, err)
		return nil, fmt.Errorf("could not save product: %w", err)
	}

	l.mu.Lock()
	l.cache[sess.FarmerID] = entity.MergeProduct(l.cache[sess.FarmerID], *stored)
	l.mu.Unlock()

	if stored.QuantityKg != quantityKg {
		l.log.Warnf("Server stored %.2f kg for %s/%s, requested %.2f kg", stored.QuantityKg, stored.CropName, stored.ReapDate, quantityKg)
	}
	return stored, nil
}

func (l *inventoryLedger) BulkUpload(ctx context.Context, sess session.Session, rows []ProductRow) (BulkResult, error) {
	result := BulkResult{Rejected: make([]RowError, 0)}
	if err := sess.RequireFarmer(); err != nil {
		return result, apperr.ValidationErr("ledger.bulk_upload", err)
	}

	valid := make([]parsedRow, 0, len(rows))
	for _, row := range rows {
		parsed, reason := parseRow(row)
		if reason != "" {
			result.Rejected = append(result.Rejected, RowError{Line: row.Line, Reason: reason})
			continue
		}
		valid = append(valid, parsed)
	}
	l.log.Infof("Bulk upload: FarmerID=%s, rows=%d, valid=%d", sess.FarmerID, len(rows), len(valid))

	for _, row := range valid {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := l.UpsertProduct(ctx, sess, row.crop, row.quantity, row.reapDate); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			result.Rejected = append(result.Rejected, RowError{Line: row.line, Reason: apperr.MessageOf(err)})
			continue
		}
		result.Accepted++
	}
	l.log.Infof("Bulk upload finished: FarmerID=%s, accepted=%d, rejected=%d", sess.FarmerID, result.Accepted, len(result.Rejected))
	return result, nil
}

func (l *inventoryLedger) Consume(ownerID, productID string, kg decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	products := l.cache[ownerID]
	for i := range products {
		if products[i].ID != productID {
			continue
		}
		left := decimal.NewFromFloat(products[i].QuantityKg).Sub(kg)
		if left.IsNegative() {
			left = decimal.Zero
		}
		products[i].QuantityKg, _ = left.Float64()
		return
	}
}

func (l *inventoryLedger) Invalidate(ownerID string) {
	l.mu.Lock()
	delete(l.cache, ownerID)
	l.mu.Unlock()
}

func (l *inventoryLedger) cached(ownerID, productID string) (entity.Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.cache[ownerID] {
		if p.ID == productID {
			return p, true
		}
	}
	return entity.Product{}, false
}

type parsedRow struct {
	line     int
	crop     string
	quantity float64
	reapDate string
}

func parseRow(row ProductRow) (parsedRow, string) {
	var missing []string
	if strings.TrimSpace(row.CropName) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(row.Quantity) == "" {
		missing = append(missing, "quantity")
	}
	if strings.TrimSpace(row.ReapDate) == "" {
		missing = append(missing, "reap_date")
	}
	if len(missing) > 0 {
		return parsedRow{}, "missing " + strings.Join(missing, ", ")
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(row.Quantity), 64)
	if err != nil || qty <= 0 {
		return parsedRow{}, fmt.Sprintf("invalid quantity %q", row.Quantity)
	}
	date := strings.TrimSpace(row.ReapDate)
	if _, err := time.Parse(entity.ReapDateLayout, date); err != nil {
		return parsedRow{}, fmt.Sprintf("invalid reap_date %q", row.ReapDate)
	}
	return parsedRow{line: row.Line, crop: strings.TrimSpace(row.CropName), quantity: qty, reapDate: date}, ""
}

func copyProducts(in []entity.Product) []entity.Product {
	return append(make([]entity.Product, 0, len(in)), in...)
}
