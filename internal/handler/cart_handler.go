package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fsanano/marketplace/internal/metrics"
	"fsanano/marketplace/internal/model"
)

type CartService interface {
	AddOrUpdateItem(ctx context.Context, buyerID, itemID int64, quantity int) (model.CartTotal, error)
	RemoveItem(ctx context.Context, buyerID, itemID int64) (model.CartTotal, error)
	DeleteCart(ctx context.Context, buyerID int64) (int64, error)
	GetCart(ctx context.Context, buyerID int64) (model.Cart, error)
	PurchaseHistory(ctx context.Context, buyerID int64) ([]model.PurchaseRecord, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, buyerID int64) (model.Receipt, error)
}

type CartHandler struct {
	cart     CartService
	checkout CheckoutService
	metrics  *metrics.ServerMetrics
	logger   *slog.Logger
}

func NewCartHandler(cart CartService, checkout CheckoutService, m *metrics.ServerMetrics, logger *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, checkout: checkout, metrics: m, logger: logger}
}

type ItemRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity *int  `json:"quantity"`
}

type DeletedResponse struct {
	OrderID int64 `json:"order_id"`
}

func (h *CartHandler) AddOrUpdateItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 {
		writeError(w, http.StatusBadRequest, "item_id must be a positive integer")
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must be a non-negative integer")
		return
	}

	res, err := h.cart.AddOrUpdateItem(r.Context(), buyerID, req.ItemID, *req.Quantity)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	res, err := h.cart.RemoveItem(r.Context(), buyerID, itemID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	orderID, err := h.cart.DeleteCart(r.Context(), buyerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{OrderID: orderID})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.GetCart(r.Context(), buyerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	history, err := h.cart.PurchaseHistory(r.Context(), buyerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyer(w, r)
	if !ok {
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), buyerID)
	h.metrics.CheckoutResult(checkoutResult(err))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *CartHandler) buyer(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := userIDFromContext(r.Context())
	if !ok {
		writeServiceError(w, h.logger, model.ErrUnauthorized)
	}
	return id, ok
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, model.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
