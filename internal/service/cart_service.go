package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fsanano/marketplace/internal/model"
)

// CartService keeps exactly one ongoing order per buyer and its total in sync with its lines.
type CartService struct {
	store  CartStore
	logger *slog.Logger
	now    func() time.Time
}

func NewCartService(store CartStore, logger *slog.Logger) *CartService {
	return &CartService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AddOrUpdateItem sets the line for itemID to the absolute quantity, creating
// the cart on first use. A zero quantity removes the line.
func (s *CartService) AddOrUpdateItem(ctx context.Context, buyerID, itemID int64, quantity int) (model.CartTotal, error) {
	if quantity < 0 {
		return model.CartTotal{}, fmt.Errorf("quantity %d: %w", quantity, model.ErrInvalidInput)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, buyerID, itemID)
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return model.CartTotal{}, err
	}
	if quantity > item.Quantity {
		return model.CartTotal{}, fmt.Errorf("requested %d of item %d, only %d in stock: %w",
			quantity, itemID, item.Quantity, model.ErrConflict)
	}
	if !(model.OrderLine{Quantity: quantity, UnitPrice: item.Price}).SubtotalFits() {
		return model.CartTotal{}, fmt.Errorf("%d x price %d of item %d overflows: %w",
			quantity, item.Price, itemID, model.ErrInvalidInput)
	}

	var result model.CartTotal
	err = s.store.RunAtomic(ctx, func(ctx context.Context) error {
		order, err := s.store.GetOngoingOrderForUpdate(ctx, buyerID)
		if errors.Is(err, model.ErrNotFound) {
			order, err = s.store.CreateOngoingOrder(ctx, buyerID, s.now())
		}
		if err != nil {
			return err
		}

		line := model.OrderLine{OrderID: order.ID, ItemID: itemID, Quantity: quantity, UnitPrice: item.Price}
		delta := line.Subtotal()

		existing, err := s.store.GetLine(ctx, order.ID, itemID)
		switch {
		case err == nil:
			// the unit price is refreshed to the current item price
			delta -= existing.Subtotal()
			err = s.store.UpdateLine(ctx, line)
		case errors.Is(err, model.ErrNotFound):
			err = s.store.InsertLine(ctx, line)
		}
		if err != nil {
			return err
		}

		total, err := s.store.AddToTotal(ctx, order.ID, delta)
		if err != nil {
			return err
		}
		result = model.CartTotal{OrderID: order.ID, Total: total}
		return nil
	})
	if err != nil {
		return model.CartTotal{}, err
	}

	s.logger.Info("cart item set",
		slog.Int64("buyer_id", buyerID),
		slog.Int64("order_id", result.OrderID),
		slog.Int64("item_id", itemID),
		slog.Int("quantity", quantity),
		slog.Int64("total", result.Total))
	return result, nil
}

// RemoveItem drops the line for itemID from the buyer's cart.
func (s *CartService) RemoveItem(ctx context.Context, buyerID, itemID int64) (model.CartTotal, error) {
	var result model.CartTotal
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		order, err := s.store.GetOngoingOrderForUpdate(ctx, buyerID)
		if err != nil {
			return err
		}

		line, err := s.store.GetLine(ctx, order.ID, itemID)
		if err != nil {
			return err
		}
		if err = s.store.DeleteLine(ctx, order.ID, itemID); err != nil {
			return err
		}

		total, err := s.store.AddToTotal(ctx, order.ID, -line.Subtotal())
		if err != nil {
			return err
		}
		result = model.CartTotal{OrderID: order.ID, Total: total}
		return nil
	})
	if err != nil {
		return model.CartTotal{}, err
	}

	s.logger.Info("cart item removed",
		slog.Int64("buyer_id", buyerID),
		slog.Int64("order_id", result.OrderID),
		slog.Int64("item_id", itemID),
		slog.Int64("total", result.Total))
	return result, nil
}

// DeleteCart discards the buyer's ongoing order and all of its lines.
func (s *CartService) DeleteCart(ctx context.Context, buyerID int64) (int64, error) {
	var orderID int64
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		order, err := s.store.GetOngoingOrderForUpdate(ctx, buyerID)
		if err != nil {
			return err
		}
		orderID = order.ID
		return s.store.DeleteOrder(ctx, order.ID)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("cart deleted", slog.Int64("buyer_id", buyerID), slog.Int64("order_id", orderID))
	return orderID, nil
}

func (s *CartService) GetCart(ctx context.Context, buyerID int64) (model.Cart, error) {
	order, err := s.store.GetOngoingOrder(ctx, buyerID)
	if err != nil {
		return model.Cart{}, err
	}

	lines, err := s.store.ListCartLines(ctx, order.ID)
	if err != nil {
		return model.Cart{}, err
	}

	return model.Cart{Order: order, Lines: lines}, nil
}

func (s *CartService) PurchaseHistory(ctx context.Context, buyerID int64) ([]model.PurchaseRecord, error) {
	return s.store.PurchaseHistory(ctx, buyerID)
}
