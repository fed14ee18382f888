package domain

import "errors"

// Kind classifies domain errors so transports can map them without
// knowing every sentinel.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPermission   Kind = "permission"
	KindBusinessRule Kind = "business_rule"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is a classified domain error. Sentinels are compared by identity,
// so wrap them with fmt.Errorf("%w: ...") to add detail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of the first domain error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf returns the machine readable code of err, or INTERNAL_ERROR.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}

var (
	// Validation errors
	ErrInvalidAmount          = newError(KindValidation, "INVALID_AMOUNT", "amount must be positive")
	ErrAmountTooSmall         = newError(KindValidation, "AMOUNT_TOO_SMALL", "amount below minimum allowed")
	ErrAmountTooLarge         = newError(KindValidation, "AMOUNT_TOO_LARGE", "amount exceeds maximum allowed")
	ErrAmountScale            = newError(KindValidation, "INVALID_AMOUNT_SCALE", "amount has too many decimal places")
	ErrInvalidTransactionType = newError(KindValidation, "INVALID_TRANSACTION_TYPE", "unknown transaction type")
	ErrInvalidWalletType      = newError(KindValidation, "INVALID_WALLET_TYPE", "unknown wallet type")
	ErrInvalidEnvelopeType    = newError(KindValidation, "INVALID_ENVELOPE_TYPE", "unknown envelope type")
	ErrInvalidRole            = newError(KindValidation, "INVALID_ROLE", "unknown participant role")
	ErrInvalidName            = newError(KindValidation, "INVALID_NAME", "invalid name")
	ErrInvalidCurrency        = newError(KindValidation, "INVALID_CURRENCY", "invalid currency code")
	ErrInvalidInterestRate    = newError(KindValidation, "INVALID_INTEREST_RATE", "interest rate cannot be negative")
	ErrInvalidMaxParticipants = newError(KindValidation, "INVALID_MAX_PARTICIPANTS", "max participants must be at least 1")
	ErrInvalidBudget          = newError(KindValidation, "INVALID_BUDGET", "budget cannot be negative")
	ErrAdjustmentDirection    = newError(KindValidation, "ADJUSTMENT_DIRECTION_REQUIRED", "adjustment requires a direction")
	ErrDescriptionTooLong     = newError(KindValidation, "DESCRIPTION_TOO_LONG", "description too long")
	ErrMissingOwner           = newError(KindValidation, "MISSING_OWNER", "caller identity is required")
	ErrInvalidWalletRef       = newError(KindValidation, "INVALID_WALLET_REF", "wallet reference is required")

	// Not found errors
	ErrWalletNotFound      = newError(KindNotFound, "WALLET_NOT_FOUND", "wallet not found")
	ErrEnvelopeNotFound    = newError(KindNotFound, "ENVELOPE_NOT_FOUND", "envelope not found")
	ErrTransactionNotFound = newError(KindNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")
	ErrCategoryNotFound    = newError(KindNotFound, "CATEGORY_NOT_FOUND", "category not found")
	ErrSubcategoryNotFound = newError(KindNotFound, "SUBCATEGORY_NOT_FOUND", "subcategory not found")
	ErrParticipantNotFound = newError(KindNotFound, "PARTICIPANT_NOT_FOUND", "participant not found")
	ErrPreferenceNotFound  = newError(KindNotFound, "PREFERENCE_NOT_FOUND", "preference not found")

	// Permission errors. Messages do not confirm that the resource exists.
	ErrWalletAccessDenied      = newError(KindPermission, "WALLET_ACCESS_DENIED", "wallet not found or access denied")
	ErrEnvelopeAccessDenied    = newError(KindPermission, "ENVELOPE_ACCESS_DENIED", "envelope not found or access denied")
	ErrTransactionAccessDenied = newError(KindPermission, "TRANSACTION_ACCESS_DENIED", "transaction not found or access denied")
	ErrCategoryAccessDenied    = newError(KindPermission, "CATEGORY_ACCESS_DENIED", "category not found or access denied")

	// Business rule errors
	ErrCurrencyMismatch     = newError(KindBusinessRule, "CURRENCY_MISMATCH", "currencies do not match")
	ErrSameWallet           = newError(KindBusinessRule, "SAME_WALLET", "cannot transfer to the same wallet")
	ErrSameEnvelope         = newError(KindBusinessRule, "SAME_ENVELOPE", "cannot transfer to the same envelope")
	ErrWalletBalanceNotZero = newError(KindBusinessRule, "WALLET_BALANCE_NOT_ZERO", "wallet balance must be zero before deletion")
	ErrDuplicateCategory    = newError(KindBusinessRule, "DUPLICATE_CATEGORY", "a category with this name already exists")
	ErrDuplicateSubcategory = newError(KindBusinessRule, "DUPLICATE_SUBCATEGORY", "a subcategory with this name already exists")
	ErrSubcategoryMismatch  = newError(KindBusinessRule, "SUBCATEGORY_MISMATCH", "subcategory does not belong to category")
	ErrMultipleOwners       = newError(KindBusinessRule, "MULTIPLE_OWNERS", "shared envelope already has an owner")
	ErrEnvelopeFull         = newError(KindBusinessRule, "ENVELOPE_FULL", "envelope has reached its participant limit")
	ErrEnvelopeNotShared    = newError(KindBusinessRule, "ENVELOPE_NOT_SHARED", "envelope is not shared")
	ErrDuplicateParticipant = newError(KindBusinessRule, "DUPLICATE_PARTICIPANT", "user already participates in envelope")
	ErrOwnerRemoval         = newError(KindBusinessRule, "OWNER_REMOVAL", "envelope owner cannot be removed")
	ErrInsufficientBudget   = newError(KindBusinessRule, "INSUFFICIENT_BUDGET", "envelope budget is insufficient")
	ErrNotACreditWallet     = newError(KindBusinessRule, "NOT_A_CREDIT_WALLET", "destination wallet is not a credit card")

	// Conflict errors
	ErrVersionConflict = newError(KindConflict, "VERSION_CONFLICT", "resource was modified concurrently")
)
