package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"fsanano/marketplace/internal/model"
)

type fakeState struct {
	items     map[int64]model.Item
	customers map[int64]int64
	sellers   map[int64]int64
	sold      map[int64]int
	orders    map[int64]model.Order
	lines     map[int64]map[int64]model.OrderLine
}

func (s fakeState) clone() fakeState {
	c := fakeState{
		items:     maps.Clone(s.items),
		customers: maps.Clone(s.customers),
		sellers:   maps.Clone(s.sellers),
		sold:      maps.Clone(s.sold),
		orders:    maps.Clone(s.orders),
		lines:     make(map[int64]map[int64]model.OrderLine, len(s.lines)),
	}
	for id, ls := range s.lines {
		c.lines[id] = maps.Clone(ls)
	}
	return c
}

// fakeStore is an in-memory CartStore and CheckoutStore. RunAtomic serialises
// transactions and restores the pre-transaction state when fn fails.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	state       fakeState
	nextOrderID int64
	txCount     int

	failOn      map[string]error
	onRunAtomic func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: fakeState{
			items:     map[int64]model.Item{},
			customers: map[int64]int64{},
			sellers:   map[int64]int64{},
			sold:      map[int64]int{},
			orders:    map[int64]model.Order{},
			lines:     map[int64]map[int64]model.OrderLine{},
		},
		failOn: map[string]error{},
	}
}

func (f *fakeStore) seedItem(item model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.items[item.ID] = item
}

func (f *fakeStore) seedCustomer(id, balance int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.customers[id] = balance
}

func (f *fakeStore) seedSeller(id, balance int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.sellers[id] = balance
}

func (f *fakeStore) snapshot() fakeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

func (f *fakeStore) ongoingOrders(buyerID int64) []model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.state.orders {
		if o.BuyerID == buyerID && o.Status == model.OrderOngoing {
			out = append(out, o)
		}
	}
	return out
}

func (f *fakeStore) lineSum(orderID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, l := range f.state.lines[orderID] {
		sum += l.Subtotal()
	}
	return sum
}

func (f *fakeStore) fail(method string) error {
	return f.failOn[method]
}

func (f *fakeStore) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.onRunAtomic != nil {
		f.onRunAtomic()
	}

	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	f.txCount++
	before := f.state.clone()
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.state = before
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) GetItem(_ context.Context, itemID int64) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetItem"); err != nil {
		return model.Item{}, err
	}
	item, ok := f.state.items[itemID]
	if !ok {
		return model.Item{}, fmt.Errorf("item %d: %w", itemID, model.ErrNotFound)
	}
	return item, nil
}

func (f *fakeStore) GetItemForUpdate(ctx context.Context, itemID int64) (model.Item, error) {
	return f.GetItem(ctx, itemID)
}

func (f *fakeStore) DecrementStock(_ context.Context, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DecrementStock"); err != nil {
		return err
	}
	item, ok := f.state.items[itemID]
	if !ok || item.Quantity < quantity {
		return fmt.Errorf("item %d: %w", itemID, model.ErrConflict)
	}
	item.Quantity -= quantity
	f.state.items[itemID] = item
	return nil
}

func (f *fakeStore) balances(userType model.UserType) map[int64]int64 {
	if userType == model.Seller {
		return f.state.sellers
	}
	return f.state.customers
}

func (f *fakeStore) GetBalance(_ context.Context, userID int64, userType model.UserType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetBalance"); err != nil {
		return 0, err
	}
	b, ok := f.balances(userType)[userID]
	if !ok {
		return 0, fmt.Errorf("%s %d: %w", userType, userID, model.ErrNotFound)
	}
	return b, nil
}

func (f *fakeStore) GetBalanceForUpdate(ctx context.Context, userID int64, userType model.UserType) (int64, error) {
	return f.GetBalance(ctx, userID, userType)
}

func (f *fakeStore) AdjustBalance(_ context.Context, userID int64, delta int64, userType model.UserType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AdjustBalance:" + string(userType)); err != nil {
		return 0, err
	}
	balances := f.balances(userType)
	b, ok := balances[userID]
	if !ok {
		return 0, fmt.Errorf("%s %d: %w", userType, userID, model.ErrNotFound)
	}
	if userType == model.Customer && b+delta < 0 {
		return 0, model.ErrInsufficientFunds
	}
	balances[userID] = b + delta
	return b + delta, nil
}

func (f *fakeStore) AddItemsSold(_ context.Context, sellerID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.sellers[sellerID]; !ok {
		return fmt.Errorf("seller %d: %w", sellerID, model.ErrNotFound)
	}
	f.state.sold[sellerID] += quantity
	return nil
}

func (f *fakeStore) GetOngoingOrder(_ context.Context, buyerID int64) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetOngoingOrder"); err != nil {
		return model.Order{}, err
	}
	for _, o := range f.state.orders {
		if o.BuyerID == buyerID && o.Status == model.OrderOngoing {
			return o, nil
		}
	}
	return model.Order{}, fmt.Errorf("cart: %w", model.ErrNotFound)
}

func (f *fakeStore) GetOngoingOrderForUpdate(ctx context.Context, buyerID int64) (model.Order, error) {
	return f.GetOngoingOrder(ctx, buyerID)
}

func (f *fakeStore) CreateOngoingOrder(_ context.Context, buyerID int64, date time.Time) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.state.orders {
		if o.BuyerID == buyerID && o.Status == model.OrderOngoing {
			return o, nil
		}
	}
	f.nextOrderID++
	o := model.Order{ID: f.nextOrderID, BuyerID: buyerID, Status: model.OrderOngoing, Date: date}
	f.state.orders[o.ID] = o
	f.state.lines[o.ID] = map[int64]model.OrderLine{}
	return o, nil
}

func (f *fakeStore) GetLine(_ context.Context, orderID, itemID int64) (model.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.state.lines[orderID][itemID]
	if !ok {
		return model.OrderLine{}, fmt.Errorf("item %d in order %d: %w", itemID, orderID, model.ErrNotFound)
	}
	return l, nil
}

func (f *fakeStore) InsertLine(_ context.Context, l model.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.lines[l.OrderID][l.ItemID]; ok {
		return fmt.Errorf("duplicate line: %w", model.ErrConflict)
	}
	f.state.lines[l.OrderID][l.ItemID] = l
	return nil
}

func (f *fakeStore) UpdateLine(_ context.Context, l model.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.lines[l.OrderID][l.ItemID]; !ok {
		return model.ErrNotFound
	}
	f.state.lines[l.OrderID][l.ItemID] = l
	return nil
}

func (f *fakeStore) DeleteLine(_ context.Context, orderID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.lines[orderID][itemID]; !ok {
		return model.ErrNotFound
	}
	delete(f.state.lines[orderID], itemID)
	return nil
}

func (f *fakeStore) AddToTotal(_ context.Context, orderID, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddToTotal"); err != nil {
		return 0, err
	}
	o, ok := f.state.orders[orderID]
	if !ok {
		return 0, model.ErrNotFound
	}
	o.TotalPayment += delta
	f.state.orders[orderID] = o
	return o.TotalPayment, nil
}

func (f *fakeStore) DeleteOrder(_ context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.orders[orderID]; !ok {
		return model.ErrNotFound
	}
	delete(f.state.orders, orderID)
	delete(f.state.lines, orderID)
	return nil
}

func (f *fakeStore) ListLines(_ context.Context, orderID int64) ([]model.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OrderLine
	for _, l := range f.state.lines[orderID] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (f *fakeStore) ListCartLines(ctx context.Context, orderID int64) ([]model.CartLine, error) {
	lines, err := f.ListLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.CartLine{}
	for _, l := range lines {
		item := f.state.items[l.ItemID]
		out = append(out, model.CartLine{ItemID: l.ItemID, Name: item.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice, URL: item.URL})
	}
	return out, nil
}

func (f *fakeStore) CompleteOrder(_ context.Context, orderID int64, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.state.orders[orderID]
	if !ok || o.Status != model.OrderOngoing {
		return model.ErrConflict
	}
	o.Status = model.OrderCompleted
	o.Date = date
	f.state.orders[orderID] = o
	return nil
}

func (f *fakeStore) PurchaseHistory(ctx context.Context, buyerID int64) ([]model.PurchaseRecord, error) {
	f.mu.Lock()
	var completed []model.Order
	for _, o := range f.state.orders {
		if o.BuyerID == buyerID && o.Status == model.OrderCompleted {
			completed = append(completed, o)
		}
	}
	f.mu.Unlock()

	sort.Slice(completed, func(i, j int) bool { return completed[i].ID > completed[j].ID })
	history := []model.PurchaseRecord{}
	for _, o := range completed {
		items, err := f.ListCartLines(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		history = append(history, model.PurchaseRecord{OrderID: o.ID, OrderDate: o.Date, Total: o.TotalPayment, Items: items})
	}
	return history, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
