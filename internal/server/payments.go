package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/reconcile"
)

type approvePayPalRequest struct {
	OrderID             int64  `json:"order_id" binding:"required"`
	PayPalOrderID       string `json:"paypal_order_id" binding:"required"`
	PayPalTransactionID string `json:"paypal_transaction_id"`
}

func (s *Server) vnpayReturn(c *gin.Context) {
	res, err := s.deps.Payments.HandleVNPayReturn(c.Request.Context(), auth.UserID(c), c.Request.URL.Query())
	s.redirectAfterPayment(c, res, err)
}

func (s *Server) paypalReturn(c *gin.Context) {
	orderID, _ := strconv.ParseInt(c.Query("orderId"), 10, 64)
	res, err := s.deps.Payments.HandlePayPalReturn(c.Request.Context(), auth.UserID(c), orderID, c.Request.URL.Query())
	s.redirectAfterPayment(c, res, err)
}

// redirectAfterPayment sends the buyer to the confirmation page on success
// and back to checkout otherwise.
func (s *Server) redirectAfterPayment(c *gin.Context, res *reconcile.Result, err error) {
	if err != nil {
		status, message := classify(err)
		if status == http.StatusInternalServerError {
			s.log.WithError(err).WithField("route", c.FullPath()).Error("payment return failed")
		}
		c.Redirect(http.StatusFound, withQuery(s.cfg.Checkout.CheckoutURL, "error", message))
		return
	}

	c.Redirect(http.StatusFound, withQuery(s.cfg.Checkout.ConfirmationURL,
		"orderId", strconv.FormatInt(res.OrderID, 10)))
}

func (s *Server) approvePayPal(c *gin.Context) {
	var req approvePayPalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.deps.Payments.ApprovePayPal(c.Request.Context(), auth.UserID(c), req.OrderID, req.PayPalOrderID, req.PayPalTransactionID)
	if err != nil {
		s.fail(c, err)
		return
	}

	message := "Payment completed"
	if res.AlreadyProcessed {
		message = "Payment already processed"
	}
	respond(c, http.StatusOK, message, gin.H{
		"order_id":       res.OrderID,
		"transaction_id": res.TransactionID,
	})
}
