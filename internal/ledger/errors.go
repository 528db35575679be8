package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Code categorizes ledger failures.
type Code string

const (
	// CodeInvalidQuantity: non-positive or malformed amount.
	CodeInvalidQuantity Code = "INVALID_QUANTITY"

	// CodeInsufficientStock: an issue exceeds the computed availability.
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"

	// CodeAlreadyReversed: the entry already has a reversal.
	CodeAlreadyReversed Code = "ALREADY_REVERSED"

	// CodeNotFound: unknown stock record or ledger entry.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStoreUnavailable: connection or transaction failure.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// CodeConflict: aborted by concurrent modification or a lock timeout.
	// The only retryable code.
	CodeConflict Code = "CONFLICT"
)

// Error is the typed failure returned by stores and engines. It carries
// enough context to build a human-readable message.
type Error struct {
	Code    Code
	Message string

	StockID string
	EntryID uint

	// Set for CodeInsufficientStock and CodeInvalidQuantity.
	Requested decimal.Decimal
	Available decimal.Decimal

	Err error
}

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrInvalidQuantity   = &Error{Code: CodeInvalidQuantity}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock}
	ErrAlreadyReversed   = &Error{Code: CodeAlreadyReversed}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrStoreUnavailable  = &Error{Code: CodeStoreUnavailable}
	ErrConflict          = &Error{Code: CodeConflict}
)

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	switch {
	case e.Code == CodeInsufficientStock:
		msg += fmt.Sprintf(" (stock=%s, requested=%s, available=%s)", e.StockID, e.Requested, e.Available)
	case e.StockID != "":
		msg += fmt.Sprintf(" (stock=%s)", e.StockID)
	case e.EntryID != 0:
		msg += fmt.Sprintf(" (entry=%d)", e.EntryID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsRetryable reports whether the caller should retry with fresh data.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeConflict
}

func InvalidQuantity(q decimal.Decimal) *Error {
	return &Error{Code: CodeInvalidQuantity, Message: "quantity must be greater than zero", Requested: q}
}

// Quantity columns are numeric(20,4).
const (
	QuantityScale         = 4
	QuantityIntegerDigits = 16
)

var quantityLimit = decimal.New(1, QuantityIntegerDigits)

// CheckQuantity accepts a positive amount that fits the stored precision.
func CheckQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return InvalidQuantity(q)
	}
	return CheckPrecision(q)
}

// CheckPrecision rejects amounts the quantity columns would round or
// overflow.
func CheckPrecision(q decimal.Decimal) error {
	if !q.Equal(q.Truncate(QuantityScale)) {
		return &Error{
			Code:      CodeInvalidQuantity,
			Message:   fmt.Sprintf("quantity allows at most %d decimal places", QuantityScale),
			Requested: q,
		}
	}
	if q.Abs().GreaterThanOrEqual(quantityLimit) {
		return &Error{
			Code:      CodeInvalidQuantity,
			Message:   fmt.Sprintf("quantity allows at most %d integer digits", QuantityIntegerDigits),
			Requested: q,
		}
	}
	return nil
}

func InsufficientStock(stockID string, requested, available decimal.Decimal) *Error {
	return &Error{
		Code:      CodeInsufficientStock,
		Message:   "insufficient stock",
		StockID:   stockID,
		Requested: requested,
		Available: available,
	}
}

func AlreadyReversed(entryID uint) *Error {
	return &Error{Code: CodeAlreadyReversed, Message: "transaction has already been reversed", EntryID: entryID}
}

func RecordNotFound(stockID string) *Error {
	return &Error{Code: CodeNotFound, Message: "stock record not found", StockID: stockID}
}

func EntryNotFound(entryID uint) *Error {
	return &Error{Code: CodeNotFound, Message: "ledger entry not found", EntryID: entryID}
}

func Conflict(err error) *Error {
	return &Error{Code: CodeConflict, Message: "transaction aborted by concurrent modification, retry", Err: err}
}

func Unavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: "store unavailable", Err: err}
}
