package model

import (
	"math"
	"time"
)

type OrderStatus string

const (
	OrderOngoing   OrderStatus = "ongoing"
	OrderCompleted OrderStatus = "completed"
)

type UserType string

const (
	Customer UserType = "customer"
	Seller   UserType = "seller"
)

type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	SellerID    int64  `json:"seller_id"`
	URL         string `json:"url"`
}

// Order is a buyer's cart while Ongoing and an immutable purchase once Completed.
type Order struct {
	ID           int64       `json:"id"`
	BuyerID      int64       `json:"buyer_id"`
	Status       OrderStatus `json:"status"`
	Date         time.Time   `json:"date"`
	TotalPayment int64       `json:"total_payment"`
}

type OrderLine struct {
	OrderID   int64 `json:"order_id"`
	ItemID    int64 `json:"item_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

func (l OrderLine) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// SubtotalFits reports whether Subtotal can be computed without overflowing int64.
func (l OrderLine) SubtotalFits() bool {
	if l.Quantity <= 0 || l.UnitPrice <= 0 {
		return true
	}
	return l.UnitPrice <= math.MaxInt64/int64(l.Quantity)
}

// CartLine is an order line resolved against the catalog for display.
type CartLine struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	URL       string `json:"url"`
}

type Cart struct {
	Order Order      `json:"order"`
	Lines []CartLine `json:"items"`
}

// CartTotal is returned by every cart mutation.
type CartTotal struct {
	OrderID int64 `json:"order_id"`
	Total   int64 `json:"total"`
}

type PurchaseRecord struct {
	OrderID   int64      `json:"order_id"`
	OrderDate time.Time  `json:"order_date"`
	Total     int64      `json:"total"`
	Items     []CartLine `json:"items"`
}

type Receipt struct {
	OrderID int64  `json:"order_id"`
	TxID    string `json:"txid"`
	Total   int64  `json:"total"`
}
