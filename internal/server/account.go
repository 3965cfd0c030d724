package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/models"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.deps.Accounts.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "Account created", gin.H{"user": user})
}

// login issues a token in the body and the auth cookie, then restores the
// cart the user left in a previous session.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	user, token, err := s.deps.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.Auth.CookieName, token, int(s.cfg.Auth.TokenTTL.Seconds()), "/", "", s.cfg.Auth.SecureCookie, true)

	if err := s.deps.Carts.Restore(ctx, user.ID); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to restore cart")
	}

	respond(c, http.StatusOK, "Logged in", gin.H{"user": user, "token": token})
}

// logout saves the cart for the next login and clears the cookie.
func (s *Server) logout(c *gin.Context) {
	if userID := auth.UserID(c); userID != 0 {
		if err := s.deps.Carts.Persist(c.Request.Context(), userID); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("failed to persist cart")
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.Auth.CookieName, "", -1, "/", "", s.cfg.Auth.SecureCookie, true)
	respond(c, http.StatusOK, "Logged out", nil)
}

func (s *Server) getProfile(c *gin.Context) {
	user, err := s.deps.Accounts.Profile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "ok", gin.H{"user": user})
}

func (s *Server) updateProfile(c *gin.Context) {
	var req models.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.deps.Accounts.UpdateProfile(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Profile updated", gin.H{"user": user})
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.deps.Accounts.ChangePassword(c.Request.Context(), auth.UserID(c),
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Password changed", nil)
}
