package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/TeninChristopher/SAM/internal/app/config"
	"github.com/TeninChristopher/SAM/internal/domain/entity"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	actionCollectionName  = "customer_actions"
	receiptCollectionName = "purchase_receipts"
)

type journalRepository struct {
	actions  *mongo.Collection
	receipts *mongo.Collection
}

func NewJournalRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.JournalRepository {
	return newJournalRepository(client.Database(cfg.Database))
}

func newJournalRepository(db *mongo.Database) *journalRepository {
	return &journalRepository{
		actions:  db.Collection(actionCollectionName),
		receipts: db.Collection(receiptCollectionName),
	}
}

func (r *journalRepository) RecordAction(ctx context.Context, action entity.CustomerAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.At.IsZero() {
		action.At = time.Now().UTC()
	}
	if _, err := r.actions.InsertOne(ctx, action); err != nil {
		return fmt.Errorf("failed to record %s action for customer %s: %w", action.Action, action.CustomerID, err)
	}
	return nil
}

func (r *journalRepository) SaveReceipt(ctx context.Context, receipt entity.PurchaseReceipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if _, err := r.receipts.InsertOne(ctx, receipt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to save receipt for cart %s: %w", receipt.CartID, err)
	}
	return nil
}

func (r *journalRepository) ReceiptsByCustomer(ctx context.Context, customerID string, limit int64) ([]entity.PurchaseReceipt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "purchased_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.receipts.Find(ctx, bson.M{"customer_id": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find receipts for customer %s: %w", customerID, err)
	}
	defer cursor.Close(ctx)

	receipts := make([]entity.PurchaseReceipt, 0)
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, fmt.Errorf("failed to decode receipts for customer %s: %w", customerID, err)
	}
	return receipts, nil
}
