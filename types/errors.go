package types

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeInvalidFormat       = "INVALID_FORMAT"
	CodeInvalidPaymentData  = "INVALID_PAYMENT_DATA"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodePaymentNetwork      = "PAYMENT_NETWORK_ERROR"
	CodeLedger              = "LEDGER_ERROR"
	CodeNotInitialized      = "NOT_INITIALIZED"
	CodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	CodePaymentInFlight     = "PAYMENT_IN_FLIGHT"
	CodeConfig              = "CONFIG_ERROR"
)

// Sentinels for errors.Is. A *PaymentError matches the sentinel with the same code.
var (
	ErrInvalidFormat       = &PaymentError{Code: CodeInvalidFormat, Message: "invalid format"}
	ErrInvalidPaymentData  = &PaymentError{Code: CodeInvalidPaymentData, Message: "invalid payment data"}
	ErrInsufficientBalance = &PaymentError{Code: CodeInsufficientBalance, Message: "insufficient balance"}
	ErrPaymentNetwork      = &PaymentError{Code: CodePaymentNetwork, Message: "payment network error"}
	ErrLedger              = &PaymentError{Code: CodeLedger, Message: "ledger error"}
	ErrNotInitialized      = &PaymentError{Code: CodeNotInitialized, Message: "client not initialized"}
	ErrPaymentNotFound     = &PaymentError{Code: CodePaymentNotFound, Message: "payment not found"}
	ErrPaymentInFlight     = &PaymentError{Code: CodePaymentInFlight, Message: "payment submission already in flight"}
	ErrConfig              = &PaymentError{Code: CodeConfig, Message: "configuration error"}
)

// PaymentError is the structured failure cause reported by every payment operation.
type PaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *PaymentError with the same code.
func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError builds a coded error wrapping an underlying cause.
func NewError(code string, err error, format string, args ...any) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// CodeOf returns the code carried by err, or "" when err is not a *PaymentError.
func CodeOf(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
