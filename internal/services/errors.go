package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyCart          = errors.New("your cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid order transition")
	ErrPaymentRequired    = errors.New("payment must be settled before completing the order")
	ErrPaymentNotPending  = errors.New("payment is not awaiting settlement")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrDuplicateReview    = errors.New("you have already reviewed this item")
	ErrReviewNotAllowed   = errors.New("you can only review items from your delivered orders")
)

// ValidationError is a user input problem with a corrective message
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StockError reports which cart line could not be served
type StockError struct {
	MenuItemID uint
	Name       string
	Available  int
	Requested  int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("sorry, only %d of %q left in stock (requested %d)", e.Available, e.Name, e.Requested)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// TransitionError explains why an order cannot move to a status
type TransitionError struct {
	OrderID uint
	From    string
	To      string
	Reason  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order #%d cannot go from %s to %s: %s", e.OrderID, e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
