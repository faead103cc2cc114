package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fsanano/marketplace/internal/model"
)

func balanceTable(userType model.UserType) (string, error) {
	switch userType {
	case model.Customer:
		return "customers", nil
	case model.Seller:
		return "sellers", nil
	default:
		return "", fmt.Errorf("unknown user type %q", userType)
	}
}

// GetBalance returns the ledger balance of a customer or seller.
func (r *Repository) GetBalance(ctx context.Context, userID int64, userType model.UserType) (int64, error) {
	return r.getBalance(ctx, userID, userType, "")
}

// GetBalanceForUpdate locks the user's balance row for the rest of the transaction.
func (r *Repository) GetBalanceForUpdate(ctx context.Context, userID int64, userType model.UserType) (int64, error) {
	return r.getBalance(ctx, userID, userType, " FOR UPDATE")
}

func (r *Repository) getBalance(ctx context.Context, userID int64, userType model.UserType, lock string) (int64, error) {
	table, err := balanceTable(userType)
	if err != nil {
		return 0, err
	}

	var balance int64
	err = r.getExecutor(ctx).QueryRow(ctx, "SELECT balance FROM "+table+" WHERE user_id = $1"+lock, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s %d: %w", userType, userID, model.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to get %s balance: %w", userType, err)
	}
	return balance, nil
}

// AdjustBalance applies a signed delta and returns the new balance.
func (r *Repository) AdjustBalance(ctx context.Context, userID int64, delta int64, userType model.UserType) (int64, error) {
	table, err := balanceTable(userType)
	if err != nil {
		return 0, err
	}

	var balance int64
	err = r.getExecutor(ctx).QueryRow(ctx,
		"UPDATE "+table+" SET balance = balance + $1 WHERE user_id = $2 RETURNING balance", delta, userID).Scan(&balance)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return 0, fmt.Errorf("%s %d: %w", userType, userID, model.ErrNotFound)
		case isCheckViolation(err):
			return 0, fmt.Errorf("%s %d: %w", userType, userID, model.ErrInsufficientFunds)
		}
		return 0, fmt.Errorf("failed to update %s balance: %w", userType, err)
	}
	return balance, nil
}

// AddItemsSold bumps the seller's cumulative sold counter.
func (r *Repository) AddItemsSold(ctx context.Context, sellerID int64, quantity int) error {
	tag, err := r.getExecutor(ctx).Exec(ctx,
		"UPDATE sellers SET items_sold = items_sold + $1 WHERE user_id = $2", quantity, sellerID)
	if err != nil {
		return fmt.Errorf("failed to update items sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("seller %d: %w", sellerID, model.ErrNotFound)
	}
	return nil
}
