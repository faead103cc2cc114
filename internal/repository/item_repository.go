package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fsanano/marketplace/internal/model"
)

const selectItem = `SELECT id, name, description, price, quantity, seller_id, url FROM items WHERE id = $1`

// GetItem returns the current snapshot of an item.
func (r *Repository) GetItem(ctx context.Context, itemID int64) (model.Item, error) {
	return r.scanItem(ctx, selectItem, itemID)
}

// GetItemForUpdate locks the item row for the rest of the transaction.
func (r *Repository) GetItemForUpdate(ctx context.Context, itemID int64) (model.Item, error) {
	return r.scanItem(ctx, selectItem+" FOR UPDATE", itemID)
}

func (r *Repository) scanItem(ctx context.Context, query string, itemID int64) (model.Item, error) {
	var item model.Item
	err := r.getExecutor(ctx).QueryRow(ctx, query, itemID).
		Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.Quantity, &item.SellerID, &item.URL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Item{}, fmt.Errorf("item %d: %w", itemID, model.ErrNotFound)
		}
		return model.Item{}, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// DecrementStock removes quantity units from stock, refusing to go below zero.
func (r *Repository) DecrementStock(ctx context.Context, itemID int64, quantity int) error {
	tag, err := r.getExecutor(ctx).Exec(ctx,
		"UPDATE items SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1", quantity, itemID)
	if err != nil {
		return fmt.Errorf("failed to update item stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d: insufficient stock: %w", itemID, model.ErrConflict)
	}
	return nil
}
