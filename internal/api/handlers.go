package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/api/middleware"
	"github.com/example/shop-backend/internal/command"
	"github.com/example/shop-backend/internal/domain/cart"
	"github.com/example/shop-backend/internal/feed"
	"github.com/example/shop-backend/internal/permission"
	"github.com/example/shop-backend/internal/query"
)

// DeviceRegistry stores push device tokens keyed by user and role.
type DeviceRegistry interface {
	Register(ctx context.Context, userID string, role permission.Role, token string) error
	Unregister(ctx context.Context, userID, token string) error
}

type Handlers struct {
	cmd     *command.Handler
	query   *query.Handler
	carts   *cart.Service
	feed    *feed.Hub
	devices DeviceRegistry
	logger  *zap.Logger
}

func NewHandlers(cmd *command.Handler, qry *query.Handler, carts *cart.Service, hub *feed.Hub, devices DeviceRegistry, logger *zap.Logger) *Handlers {
	return &Handlers{cmd: cmd, query: qry, carts: carts, feed: hub, devices: devices, logger: logger}
}

// Product Handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var cmd command.CreateProduct
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.cmd.CreateProduct(r.Context(), claims.Role, cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.query.ListProducts(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.query.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var cmd command.UpdateProduct
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ProductID = chi.URLParam(r, "id")

	p, err := h.cmd.UpdateProduct(r.Context(), claims.Role, cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	err := h.cmd.DeleteProduct(r.Context(), claims.Role, command.DeleteProduct{
		ProductID: chi.URLParam(r, "id"),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ProcessSale(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var cmd command.ProcessSale
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.cmd.ProcessSale(r.Context(), claims.Role, cmd); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "sale recorded"})
}

// Cart Handlers

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.carts.AddHold(r.Context(), userID, req.ProductID, req.Quantity, time.Now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.query.GetCart(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	itemID := chi.URLParam(r, "id")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.requireCartItem(r, userID, itemID); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.carts.SetQuantity(r.Context(), itemID, req.Quantity); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ExtendCartHold(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	itemID := chi.URLParam(r, "id")

	if err := h.requireCartItem(r, userID, itemID); err != nil {
		respondDomainError(w, err)
		return
	}

	item, err := h.carts.ExtendHold(r.Context(), itemID, time.Now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	itemID := chi.URLParam(r, "id")

	if err := h.requireCartItem(r, userID, itemID); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.carts.SetQuantity(r.Context(), itemID, 0); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireCartItem confirms the item belongs to the calling user. Items in
// other carts read as not found.
func (h *Handlers) requireCartItem(r *http.Request, userID, itemID string) error {
	items, err := h.carts.Items(r.Context(), userID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == itemID {
			return nil
		}
	}
	return cart.ErrItemNotFound
}

// Order Handlers

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var cmd command.Checkout
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = claims.UserID

	o, err := h.cmd.Checkout(r.Context(), claims.Role, cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	orders, err := h.query.Orders(r.Context(), claims.UserID, claims.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	o, err := h.query.GetOrder(r.Context(), chi.URLParam(r, "id"), claims.UserID, claims.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var cmd command.UpdateOrderStatus
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	o, err := h.cmd.UpdateOrderStatus(r.Context(), claims.Role, cmd)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// StreamOrders serves order updates over server-sent events. Customers
// receive only their own orders; staff receive everything.
func (h *Handlers) StreamOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	filter := feed.Filter{}
	if !permission.IsAllowed(claims.Role, permission.ActionManageOrders) {
		filter.CustomerID = claims.UserID
	}

	updates, cancel := h.feed.Subscribe(filter, 16)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, open := <-updates:
			if !open {
				return
			}
			data, err := json.Marshal(u)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", u.Event, data)
			flusher.Flush()
		}
	}
}

// Device Handlers

type deviceRequest struct {
	Token string `json:"token"`
}

func (h *Handlers) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.devices.Register(r.Context(), claims.UserID, claims.Role, req.Token); err != nil {
		h.logger.Error("registering device token failed", zap.Error(err))
		respondJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "device registered"})
}

func (h *Handlers) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.devices.Unregister(r.Context(), claims.UserID, req.Token); err != nil {
		h.logger.Error("unregistering device token failed", zap.Error(err))
		respondJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// User Handlers

func (h *Handlers) GetUsers(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	users, err := h.query.ListUsers(r.Context(), claims.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handlers) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	var cmd command.UpdateUserRole
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = chi.URLParam(r, "id")

	if err := h.cmd.UpdateUserRole(r.Context(), claims.Role, cmd); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}

func (h *Handlers) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())

	err := h.cmd.DeactivateUser(r.Context(), claims.Role, command.DeactivateUser{
		UserID: chi.URLParam(r, "id"),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}
