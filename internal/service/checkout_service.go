package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fsanano/marketplace/internal/model"
)

// CheckoutService settles a buyer's cart into a completed order.
type CheckoutService struct {
	store   CheckoutStore
	logger  *slog.Logger
	now     func() time.Time
	newTxID func() string
}

func NewCheckoutService(store CheckoutStore, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		store:   store,
		logger:  logger,
		now:     time.Now,
		newTxID: uuid.NewString,
	}
}

// Checkout moves stock and balances for every line of the buyer's cart and
// marks it completed. On any failure nothing is written and the cart stays ongoing.
func (s *CheckoutService) Checkout(ctx context.Context, buyerID int64) (model.Receipt, error) {
	txID := s.newTxID()
	logger := s.logger.With(slog.String("txid", txID), slog.Int64("buyer_id", buyerID))
	started := s.now()

	var (
		order   model.Order
		balance int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.store.GetOngoingOrder(gctx, buyerID)
		return err
	})
	g.Go(func() error {
		var err error
		balance, err = s.store.GetBalance(gctx, buyerID, model.Customer)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Receipt{}, err
	}

	if balance < order.TotalPayment {
		return model.Receipt{}, fmt.Errorf("balance %d below order total %d: %w",
			balance, order.TotalPayment, model.ErrInsufficientFunds)
	}

	lines, err := s.store.ListLines(ctx, order.ID)
	if err != nil {
		return model.Receipt{}, err
	}
	if len(lines) == 0 {
		return model.Receipt{}, fmt.Errorf("order %d has no items: %w", order.ID, model.ErrConflict)
	}

	plan := s.plan(order, lines, started)
	if err := plan.run(ctx, s.store); err != nil {
		logger.Warn("checkout aborted", slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
		return model.Receipt{}, err
	}

	logger.Info("checkout completed",
		slog.Int64("order_id", order.ID),
		slog.Int64("total", order.TotalPayment),
		slog.Int("lines", len(lines)),
		slog.Duration("duration", s.now().Sub(started)))

	return model.Receipt{OrderID: order.ID, TxID: txID, Total: order.TotalPayment}, nil
}

func (s *CheckoutService) plan(order model.Order, lines []model.OrderLine, settledAt time.Time) *settlement {
	plan := &settlement{}
	buyerID := order.BuyerID

	plan.add("lock order", func(ctx context.Context) error {
		current, err := s.store.GetOngoingOrderForUpdate(ctx, buyerID)
		if err != nil {
			return err
		}
		if current.ID != order.ID || current.TotalPayment != order.TotalPayment {
			return fmt.Errorf("cart changed during checkout: %w", model.ErrConflict)
		}
		currentLines, err := s.store.ListLines(ctx, order.ID)
		if err != nil {
			return err
		}
		if !slices.Equal(currentLines, lines) {
			return fmt.Errorf("cart changed during checkout: %w", model.ErrConflict)
		}
		return nil
	})

	plan.add("lock buyer balance", func(ctx context.Context) error {
		balance, err := s.store.GetBalanceForUpdate(ctx, buyerID, model.Customer)
		if err != nil {
			return err
		}
		if balance < order.TotalPayment {
			return fmt.Errorf("balance %d below order total %d: %w", balance, order.TotalPayment, model.ErrInsufficientFunds)
		}
		return nil
	})

	payouts := make(map[int64]*payout)
	for _, line := range lines {
		plan.add(fmt.Sprintf("settle item %d", line.ItemID), func(ctx context.Context) error {
			return s.settleLine(ctx, buyerID, line, payouts)
		})
	}

	// Seller rows are always locked in ascending id order.
	plan.add("credit sellers", func(ctx context.Context) error {
		for _, sellerID := range slices.Sorted(maps.Keys(payouts)) {
			p := payouts[sellerID]
			if _, err := s.store.AdjustBalance(ctx, sellerID, p.amount, model.Seller); err != nil {
				return err
			}
			if err := s.store.AddItemsSold(ctx, sellerID, p.quantity); err != nil {
				return err
			}
		}
		return nil
	})

	plan.add("complete order", func(ctx context.Context) error {
		return s.store.CompleteOrder(ctx, order.ID, settledAt)
	})

	return plan
}

type payout struct {
	amount   int64
	quantity int
}

// settleLine re-validates live stock, moves stock and debits the buyer for one
// line. The seller's share is accumulated in payouts and credited later.
// The buyer pays the unit price captured when the line was written.
func (s *CheckoutService) settleLine(ctx context.Context, buyerID int64, line model.OrderLine, payouts map[int64]*payout) error {
	item, err := s.store.GetItemForUpdate(ctx, line.ItemID)
	if err != nil {
		return err
	}
	if item.Quantity < line.Quantity {
		return fmt.Errorf("requested %d, only %d in stock: %w", line.Quantity, item.Quantity, model.ErrConflict)
	}

	if err := s.store.DecrementStock(ctx, line.ItemID, line.Quantity); err != nil {
		return err
	}

	amount := line.Subtotal()
	if _, err := s.store.AdjustBalance(ctx, buyerID, -amount, model.Customer); err != nil {
		return err
	}

	p, ok := payouts[item.SellerID]
	if !ok {
		p = &payout{}
		payouts[item.SellerID] = p
	}
	p.amount += amount
	p.quantity += line.Quantity
	return nil
}
