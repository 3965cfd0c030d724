package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure:
			return ErrorClassSerialization
		case codeDeadlockDetected:
			return ErrorClassDeadlock
		case codeLockNotAvailable:
			return ErrorClassTransient
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentExists        = errors.New("payment already recorded for order")
	ErrTransactionUsed      = errors.New("payment transaction already used for another order")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOptimisticLockFailed = errors.New("product was changed by someone else, reload and try again")
	ErrProductInOrders      = errors.New("product has orders, deactivate it instead")
	ErrAdminImmutable       = errors.New("admin accounts cannot be deactivated")
	ErrAlreadyInWishlist    = errors.New("product already in wishlist")
	ErrWishlistItemNotFound = errors.New("product not in wishlist")
)

// StockError names the product that cannot cover an order line. It matches
// ErrInsufficientStock.
type StockError struct {
	Product   string
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s, %d left", e.Product, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }
