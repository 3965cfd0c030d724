// Package gateways constructs payment gateways from configuration.
package gateways

import (
	"fmt"
	"net/http"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/payment/paypal"
	"github.com/safar/storefront/internal/payment/vnpay"
	"github.com/sirupsen/logrus"
)

// New returns the gateway implementation for method.
func New(method string, cfg *config.Config, log logrus.FieldLogger) (payment.Gateway, error) {
	client := &http.Client{Timeout: cfg.Checkout.GatewayTimeout}

	switch method {
	case models.PaymentMethodVNPay:
		return vnpay.New(cfg.VNPay, client, logging.Component(log, "vnpay")), nil
	case models.PaymentMethodPayPal:
		return paypal.New(cfg.PayPal, client, logging.Component(log, "paypal")), nil
	default:
		return nil, fmt.Errorf("%w: %q", payment.ErrUnsupportedMethod, method)
	}
}

// Registry builds a registry holding every online gateway.
func Registry(cfg *config.Config, log logrus.FieldLogger) (*payment.Registry, error) {
	var gs []payment.Gateway
	for _, method := range []string{models.PaymentMethodVNPay, models.PaymentMethodPayPal} {
		g, err := New(method, cfg, log)
		if err != nil {
			return nil, err
		}
		gs = append(gs, g)
	}
	return payment.NewRegistry(gs...), nil
}
