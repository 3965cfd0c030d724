package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/store"
)

type productStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type stockRequest struct {
	StockQuantity *int `json:"stock_quantity" binding:"required"`
	Version       int  `json:"version" binding:"required"`
}

func (s *Server) adminDashboard(c *gin.Context) {
	stats, err := s.deps.Admin.Dashboard(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"dashboard": stats})
}

func (s *Server) adminStats(c *gin.Context) {
	stats, err := s.deps.Admin.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"stats": stats})
}

func (s *Server) adminListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)

	users, err := s.deps.Admin.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"users": users})
}

func (s *Server) adminGetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := s.deps.Admin.GetUser(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"user": user})
}

func (s *Server) adminToggleUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := s.deps.Admin.ToggleUserActive(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	message := "User deactivated"
	if user.IsActive {
		message = "User activated"
	}
	respond(c, http.StatusOK, message, gin.H{"user": user})
}

// adminListOrders pages through every customer's orders.
func (s *Server) adminListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	_, limit = store.NormalizePage(1, limit)

	cursor := c.Query("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		respondError(c, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := s.deps.Admin.ListOrders(c.Request.Context(), cursor, limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"orders": page})
}

func (s *Server) adminListProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	result, err := s.deps.Admin.ListProducts(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"products": result})
}

func (s *Server) adminEditProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req editProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	np, problem := req.product()
	if problem != "" {
		respondError(c, http.StatusBadRequest, problem)
		return
	}

	product, err := s.deps.Admin.EditProduct(c.Request.Context(), id, req.Version, np)
	if err != nil {
		if database.IsUniqueViolation(err) {
			respondError(c, http.StatusConflict, "a product with this name already exists")
			return
		}
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Product updated", gin.H{"product": product})
}

func (s *Server) adminSetProductStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req productStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := s.deps.Admin.SetProductActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Product status updated", gin.H{"product": product})
}

func (s *Server) adminUpdateStock(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := s.deps.Admin.UpdateStock(c.Request.Context(), id, *req.StockQuantity, req.Version)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Stock updated", gin.H{"product": product})
}

func (s *Server) adminDeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := s.deps.Admin.DeleteProduct(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Product deleted", nil)
}
