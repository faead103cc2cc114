package service

import (
	"context"
	"time"

	"fsanano/marketplace/internal/model"
)

// UnitOfWork runs fn inside a single storage transaction; any error from fn
// rolls back every write made through the ctx it receives.
type UnitOfWork interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type ItemReader interface {
	GetItem(ctx context.Context, itemID int64) (model.Item, error)
}

type CartStore interface {
	UnitOfWork
	ItemReader

	GetOngoingOrder(ctx context.Context, buyerID int64) (model.Order, error)
	GetOngoingOrderForUpdate(ctx context.Context, buyerID int64) (model.Order, error)
	CreateOngoingOrder(ctx context.Context, buyerID int64, date time.Time) (model.Order, error)
	GetLine(ctx context.Context, orderID, itemID int64) (model.OrderLine, error)
	InsertLine(ctx context.Context, l model.OrderLine) error
	UpdateLine(ctx context.Context, l model.OrderLine) error
	DeleteLine(ctx context.Context, orderID, itemID int64) error
	AddToTotal(ctx context.Context, orderID, delta int64) (int64, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	ListCartLines(ctx context.Context, orderID int64) ([]model.CartLine, error)
	PurchaseHistory(ctx context.Context, buyerID int64) ([]model.PurchaseRecord, error)
}

type CheckoutStore interface {
	UnitOfWork

	GetOngoingOrder(ctx context.Context, buyerID int64) (model.Order, error)
	GetOngoingOrderForUpdate(ctx context.Context, buyerID int64) (model.Order, error)
	ListLines(ctx context.Context, orderID int64) ([]model.OrderLine, error)
	CompleteOrder(ctx context.Context, orderID int64, date time.Time) error

	GetItemForUpdate(ctx context.Context, itemID int64) (model.Item, error)
	DecrementStock(ctx context.Context, itemID int64, quantity int) error

	GetBalance(ctx context.Context, userID int64, userType model.UserType) (int64, error)
	GetBalanceForUpdate(ctx context.Context, userID int64, userType model.UserType) (int64, error)
	AdjustBalance(ctx context.Context, userID int64, delta int64, userType model.UserType) (int64, error)
	AddItemsSold(ctx context.Context, sellerID int64, quantity int) error
}
