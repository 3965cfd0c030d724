package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/admin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/reconcile"
	"github.com/safar/storefront/internal/wishlist"
)

const genericFailure = "Something went wrong, please try again"

// errorStatuses maps sentinel errors to HTTP statuses. The sentinel's own
// text is what the client sees.
var errorStatuses = []struct {
	err    error
	status int
}{
	{cart.ErrUnauthenticated, http.StatusUnauthorized},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{wishlist.ErrUnauthenticated, http.StatusUnauthorized},

	{auth.ErrAccountDisabled, http.StatusForbidden},
	{database.ErrAdminImmutable, http.StatusForbidden},

	{database.ErrProductNotFound, http.StatusNotFound},
	{database.ErrOrderNotFound, http.StatusNotFound},
	{database.ErrUserNotFound, http.StatusNotFound},
	{cart.ErrLineNotFound, http.StatusNotFound},
	{database.ErrWishlistItemNotFound, http.StatusNotFound},

	{cart.ErrInvalidQuantity, http.StatusBadRequest},
	{checkout.ErrCartEmpty, http.StatusBadRequest},
	{checkout.ErrPaymentMethodRequired, http.StatusBadRequest},
	{checkout.ErrUnsupportedPaymentMethod, http.StatusBadRequest},
	{checkout.ErrInvalidDraft, http.StatusBadRequest},
	{payment.ErrUnsupportedMethod, http.StatusBadRequest},
	{reconcile.ErrInvalidRequest, http.StatusBadRequest},
	{reconcile.ErrInvalidStatus, http.StatusBadRequest},
	{auth.ErrMissingFields, http.StatusBadRequest},
	{auth.ErrWeakPassword, http.StatusBadRequest},
	{auth.ErrNameRequired, http.StatusBadRequest},
	{auth.ErrPasswordFields, http.StatusBadRequest},
	{auth.ErrPasswordMismatch, http.StatusBadRequest},
	{auth.ErrWrongPassword, http.StatusBadRequest},
	{admin.ErrNegativeStock, http.StatusBadRequest},

	{cart.ErrOutOfStock, http.StatusConflict},
	{database.ErrInsufficientStock, http.StatusConflict},
	{database.ErrEmailTaken, http.StatusConflict},
	{reconcile.ErrInvalidTransition, http.StatusConflict},
	{reconcile.ErrAlreadyPaid, http.StatusConflict},
	{reconcile.ErrPaymentInProgress, http.StatusConflict},
	{database.ErrTransactionUsed, http.StatusConflict},
	{database.ErrOptimisticLockFailed, http.StatusConflict},
	{database.ErrAlreadyInWishlist, http.StatusConflict},
	{database.ErrProductInOrders, http.StatusConflict},

	{reconcile.ErrVerificationFailed, http.StatusPaymentRequired},
	{reconcile.ErrPaymentNotCreated, http.StatusBadGateway},
	{payment.ErrNotConfigured, http.StatusServiceUnavailable},
	{cart.ErrCartUnavailable, http.StatusServiceUnavailable},
}

func respond(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{
		"success": status < http.StatusBadRequest,
		"message": message,
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, message string) {
	respond(c, status, message, nil)
}

// fail writes the response for err. Unknown errors are logged and hidden
// behind a generic message.
func (s *Server) fail(c *gin.Context, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("route", c.FullPath()).Error("request failed")
	}
	respondError(c, status, message)
}

func classify(err error) (int, string) {
	var stock *database.StockError
	if errors.As(err, &stock) {
		return http.StatusConflict, stock.Error()
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, genericFailure
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// withQuery returns base with the given key/value pairs added to its query.
func withQuery(base string, kv ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String()
}
