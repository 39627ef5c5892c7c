package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// Messages may differ between call sites, the code is the identity.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying the error that caused it
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes raised by the cart
const (
	CodeStockExceeded      = "STOCK_EXCEEDED"
	CodeRemoteFetchFailure = "REMOTE_FETCH_FAILURE"
	CodeRemoveFailed       = "REMOVE_FAILED"
	CodeNotInCart          = "NOT_IN_CART"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
	CodeInvalidProductID   = "INVALID_PRODUCT_ID"
	CodeInvalidAmount      = "INVALID_AMOUNT"
	CodeDuplicateProduct   = "DUPLICATE_PRODUCT"
)

// Cart errors. Match them with errors.Is; call sites may attach their own message or cause.
var (
	ErrStockExceeded      = NewDomainError(CodeStockExceeded, "Requested quantity is out of stock")
	ErrRemoteFetchFailure = NewDomainError(CodeRemoteFetchFailure, "Failed to fetch data from the product service")
	ErrRemoveFailed       = NewDomainError(CodeRemoveFailed, "Error removing product")
	ErrNotInCart          = NewDomainError(CodeNotInCart, "Product is not in the cart")
	ErrPersistenceFailure = NewDomainError(CodePersistenceFailure, "Failed to persist the cart")
	ErrInvalidProductID   = NewDomainError(CodeInvalidProductID, "Product id must be positive")
	ErrInvalidAmount      = NewDomainError(CodeInvalidAmount, "Line item amount must be at least 1")
	ErrDuplicateProduct   = NewDomainError(CodeDuplicateProduct, "Product is already in the cart")
)
