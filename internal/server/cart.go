package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func cartBody(lines []models.CartLine) gin.H {
	count := 0
	subtotal := decimal.Zero
	for _, l := range lines {
		count += l.Quantity
		subtotal = subtotal.Add(l.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return gin.H{
		"items":    lines,
		"count":    count,
		"subtotal": subtotal,
	}
}

func (s *Server) getCart(c *gin.Context) {
	lines, err := s.deps.Carts.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"cart": cartBody(lines)})
}

func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, err := s.deps.Carts.Add(c.Request.Context(), auth.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "Added to cart", gin.H{"item": line})
}

func (s *Server) updateCartItem(c *gin.Context) {
	lineID, ok := paramID(c, "lineId")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	line, err := s.deps.Carts.Update(c.Request.Context(), auth.UserID(c), lineID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart updated", gin.H{"item": line})
}

func (s *Server) removeCartItem(c *gin.Context) {
	lineID, ok := paramID(c, "lineId")
	if !ok {
		return
	}

	if err := s.deps.Carts.Remove(c.Request.Context(), auth.UserID(c), lineID); err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Removed from cart", nil)
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.deps.Carts.Clear(c.Request.Context(), auth.UserID(c)); err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Cart cleared", nil)
}
