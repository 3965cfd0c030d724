// Package server exposes the storefront over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/reconcile"
	"github.com/safar/storefront/internal/store"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Accounts interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Profile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, p models.Profile) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next, confirm string) error
}

type Carts interface {
	Get(ctx context.Context, userID int64) ([]models.CartLine, error)
	Add(ctx context.Context, userID, productID int64, quantity int) (models.CartLine, error)
	Update(ctx context.Context, userID, lineID int64, quantity int) (models.CartLine, error)
	Remove(ctx context.Context, userID, lineID int64) error
	Clear(ctx context.Context, userID int64) error
	Restore(ctx context.Context, userID int64) error
	Persist(ctx context.Context, userID int64) error
}

type Checkout interface {
	ConfirmOrder(ctx context.Context, userID int64, draft checkout.Draft, paymentMethod string) (*checkout.Confirmation, error)
}

type Payments interface {
	HandleVNPayReturn(ctx context.Context, userID int64, params url.Values) (*reconcile.Result, error)
	HandlePayPalReturn(ctx context.Context, userID, orderID int64, params url.Values) (*reconcile.Result, error)
	ApprovePayPal(ctx context.Context, userID, orderID int64, paypalOrderID, captureID string) (*reconcile.Result, error)
	ProcessPayment(ctx context.Context, userID, orderID int64, method string, urls reconcile.URLs, clientIP string) (*payment.Response, error)
	Cancel(ctx context.Context, userID, orderID int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error)
}

type Catalog interface {
	ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error)
	// ProductBySlug returns an active product and counts the view.
	ProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	CreateProduct(ctx context.Context, p store.NewProduct) (*models.Product, error)
}

type Orders interface {
	ListOrders(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
}

type Wishlist interface {
	Add(ctx context.Context, userID, productID int64) (int, error)
	Remove(ctx context.Context, userID, productID int64) (int, error)
	List(ctx context.Context, userID int64) ([]models.WishlistItem, error)
	Count(ctx context.Context, userID int64) (int, error)
	Contains(ctx context.Context, userID, productID int64) (bool, error)
	AddToCart(ctx context.Context, userID, productID int64) (models.CartLine, error)
	Clear(ctx context.Context, userID int64) error
}

type Admin interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
	Stats(ctx context.Context) (*models.SalesStats, error)
	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ToggleUserActive(ctx context.Context, id int64) (*models.User, error)
	ListOrders(ctx context.Context, cursor string, limit int) (*store.CursorPage, error)
	ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error)
	SetProductActive(ctx context.Context, id int64, active bool) (*models.Product, error)
	EditProduct(ctx context.Context, id int64, version int, p store.NewProduct) (*models.Product, error)
	UpdateStock(ctx context.Context, id int64, stock, version int) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Deps struct {
	Accounts Accounts
	Issuer   *auth.Issuer
	Carts    Carts
	Checkout Checkout
	Payments Payments
	Catalog  Catalog
	Orders   Orders
	Wishlist Wishlist
	Admin    Admin
	// Health reports whether backing stores are reachable. Nil means healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	router *gin.Engine
	cfg    *config.Config
	deps   Deps
	log    logrus.FieldLogger
}

func New(cfg *config.Config, deps Deps, log logrus.FieldLogger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	router.Use(auth.Middleware(deps.Issuer, cfg.Auth.CookieName))

	s := &Server{
		router: router,
		cfg:    cfg,
		deps:   deps,
		log:    log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)
		api.POST("/auth/logout", s.logout)

		api.GET("/products", s.listProducts)
		api.GET("/products/:slug", s.getProduct)
	}

	account := api.Group("/account", auth.RequireUser())
	{
		account.GET("/profile", s.getProfile)
		account.PUT("/profile", s.updateProfile)
		account.PUT("/password", s.changePassword)
	}

	cart := api.Group("/cart", auth.RequireUser())
	{
		cart.GET("", s.getCart)
		cart.POST("/items", s.addCartItem)
		cart.PUT("/items/:lineId", s.updateCartItem)
		cart.DELETE("/items/:lineId", s.removeCartItem)
		cart.DELETE("", s.clearCart)
	}

	wishlist := api.Group("/wishlist", auth.RequireUser())
	{
		wishlist.GET("", s.getWishlist)
		wishlist.GET("/count", s.wishlistCount)
		wishlist.GET("/items/:productId", s.wishlistContains)
		wishlist.POST("/items/:productId", s.addToWishlist)
		wishlist.DELETE("/items/:productId", s.removeFromWishlist)
		wishlist.POST("/items/:productId/cart", s.wishlistToCart)
		wishlist.DELETE("", s.clearWishlist)
	}

	orders := api.Group("/orders", auth.RequireUser())
	{
		orders.POST("/confirm", s.confirmOrder)
		orders.GET("", s.listOrders)
		orders.GET("/:id", s.getOrder)
		orders.POST("/:id/payment", s.processPayment)
		orders.POST("/:id/cancel", s.cancelOrder)
	}

	// Gateway returns arrive as browser redirects and answer with redirects.
	payments := api.Group("/payments")
	{
		payments.GET("/vnpay/return", s.vnpayReturn)
		payments.GET("/paypal/return", s.paypalReturn)
		payments.POST("/paypal/approve", auth.RequireUser(), s.approvePayPal)
	}

	admin := api.Group("/admin", auth.RequireAdmin())
	{
		admin.GET("/dashboard", s.adminDashboard)
		admin.GET("/stats", s.adminStats)

		admin.GET("/users", s.adminListUsers)
		admin.GET("/users/:id", s.adminGetUser)
		admin.POST("/users/:id/toggle-active", s.adminToggleUser)

		admin.GET("/products", s.adminListProducts)
		admin.POST("/products", s.createProduct)
		admin.PUT("/products/:id", s.adminEditProduct)
		admin.PUT("/products/:id/status", s.adminSetProductStatus)
		admin.PUT("/products/:id/stock", s.adminUpdateStock)
		admin.DELETE("/products/:id", s.adminDeleteProduct)

		admin.GET("/orders", s.adminListOrders)
		admin.PUT("/orders/:id/status", s.updateOrderStatus)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.cfg.Server.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) healthCheck(c *gin.Context) {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			s.log.WithError(err).Warn("health check failed")
			respondError(c, http.StatusServiceUnavailable, "database connection failed")
			return
		}
	}

	respond(c, http.StatusOK, "ok", gin.H{"service": "storefront"})
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request")
			return
		}
		entry.Debug("request")
	}
}

// corsConfig allows credentials only for an explicit origin list; "*" or
// no origins opens the API to any origin.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	anyOrigin := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			anyOrigin = true
		}
	}

	if anyOrigin {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
