package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/reconcile"
	"github.com/safar/storefront/internal/store"
)

type confirmOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
	checkout.Draft
}

type processPaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) confirmOrder(c *gin.Context) {
	var req confirmOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	conf, err := s.deps.Checkout.ConfirmOrder(c.Request.Context(), auth.UserID(c), req.Draft, req.PaymentMethod)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "Order placed", gin.H{
		"order":            conf,
		"requires_payment": conf.PaymentMethod != models.PaymentMethodCash,
	})
}

func (s *Server) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	_, limit = store.NormalizePage(1, limit)

	cursor := c.Query("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		respondError(c, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := s.deps.Orders.ListOrders(c.Request.Context(), auth.UserID(c), cursor, limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"orders": page})
}

// getOrder returns an order with its details and payment. Customers only
// see their own orders.
func (s *Server) getOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := s.deps.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if order.UserID != auth.UserID(c) && auth.Role(c) != models.RoleAdmin {
		s.fail(c, database.ErrOrderNotFound)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"order": order})
}

func (s *Server) processPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req processPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	resp, err := s.deps.Payments.ProcessPayment(c.Request.Context(), auth.UserID(c), id, req.PaymentMethod, reconcile.URLs{}, c.ClientIP())
	if err != nil {
		if resp != nil && resp.Message != "" {
			respondError(c, http.StatusBadGateway, resp.Message)
			return
		}
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Redirecting to payment", gin.H{
		"redirect_url":   resp.PaymentURL,
		"transaction_id": resp.TransactionID,
		"order_id":       id,
	})
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := s.deps.Payments.Cancel(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Order cancelled", gin.H{"order": order})
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := s.deps.Payments.UpdateStatus(c.Request.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Order status updated", gin.H{"order": order})
}
