package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
)

func (s *Server) getWishlist(c *gin.Context) {
	items, err := s.deps.Wishlist.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"items": items, "count": len(items)})
}

func (s *Server) wishlistCount(c *gin.Context) {
	count, err := s.deps.Wishlist.Count(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"count": count})
}

func (s *Server) wishlistContains(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	found, err := s.deps.Wishlist.Contains(c.Request.Context(), auth.UserID(c), productID)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"in_wishlist": found})
}

func (s *Server) addToWishlist(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	count, err := s.deps.Wishlist.Add(c.Request.Context(), auth.UserID(c), productID)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "Added to wishlist", gin.H{"count": count})
}

func (s *Server) removeFromWishlist(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	count, err := s.deps.Wishlist.Remove(c.Request.Context(), auth.UserID(c), productID)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Removed from wishlist", gin.H{"count": count})
}

func (s *Server) wishlistToCart(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	line, err := s.deps.Wishlist.AddToCart(c.Request.Context(), auth.UserID(c), productID)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Added to cart", gin.H{"line": line})
}

func (s *Server) clearWishlist(c *gin.Context) {
	if err := s.deps.Wishlist.Clear(c.Request.Context(), auth.UserID(c)); err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Wishlist cleared", gin.H{"count": 0})
}
