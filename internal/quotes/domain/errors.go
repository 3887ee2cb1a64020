package domain

import "medcrm_backend/platform/apperr"

// Machine-readable error codes surfaced by the quotes module.
const (
	CodeInstitutionNotFound     = "INSTITUTION_NOT_FOUND"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeQuoteNotFound           = "QUOTE_NOT_FOUND"
	CodeQuoteLineNotFound       = "QUOTE_LINE_NOT_FOUND"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeQuoteNotModifiable      = "QUOTE_NOT_MODIFIABLE"
	CodeQuoteNotDeletable       = "QUOTE_NOT_DELETABLE"
	CodeQuoteNoLines            = "QUOTE_NO_LINES"
	CodeValidation              = "VALIDATION_ERROR"
	CodeInvalidLineIDs          = "INVALID_LINE_IDS"
	CodeIncompleteLineList      = "INCOMPLETE_LINE_LIST"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeQuoteNumberConflict     = "QUOTE_NUMBER_CONFLICT"
	CodeQuoteSequenceExhausted  = "QUOTE_SEQUENCE_EXHAUSTED"
)

const (
	msgOnlyDraftCanBeSent    = "Only draft quotes can be sent"
	msgCannotAccept          = "Quote cannot be accepted in its current state"
	msgCannotReject          = "Quote cannot be rejected in its current state"
	msgCannotCancel          = "Only draft or sent quotes can be cancelled"
	msgCannotExpire          = "Only sent quotes past their validity date can expire"
	msgPercentageOver100     = "Percentage discount cannot exceed 100%"
	msgInvalidDiscountConfig = "Invalid discount configuration"
	msgLineTotalTooLarge     = "line amounts exceed 999999999999.99"
	msgQuoteTotalTooLarge    = "quote total exceeds 999999999999.99"
)

// ErrQuoteNotFound is returned when a quote id does not resolve.
func ErrQuoteNotFound() *apperr.Error {
	return apperr.NotFound("quote not found").WithCode(CodeQuoteNotFound)
}

// ErrLineNotFound is returned when a line id does not resolve within its quote.
func ErrLineNotFound() *apperr.Error {
	return apperr.NotFound("quote line not found").WithCode(CodeQuoteLineNotFound)
}

// ErrInstitutionNotFound is returned when the referenced institution is missing.
func ErrInstitutionNotFound() *apperr.Error {
	return apperr.NotFound("institution not found").WithCode(CodeInstitutionNotFound)
}

// ErrUserNotFound is returned when the referenced user is missing.
func ErrUserNotFound() *apperr.Error {
	return apperr.NotFound("user not found").WithCode(CodeUserNotFound)
}

// ErrInsufficientPermissions is returned when the actor may not mutate the quote.
func ErrInsufficientPermissions() *apperr.Error {
	return apperr.Forbidden("you are not allowed to modify this quote").WithCode(CodeInsufficientPermissions)
}

// ErrNotModifiable is returned when the quote status forbids edits.
func ErrNotModifiable() *apperr.Error {
	return apperr.InvalidTransition("quote can no longer be modified").WithCode(CodeQuoteNotModifiable)
}

// ErrNotDeletable is returned when a non-draft quote is deleted.
func ErrNotDeletable() *apperr.Error {
	return apperr.InvalidTransition("only draft quotes can be deleted").WithCode(CodeQuoteNotDeletable)
}

// ErrNoLines is returned when a quote without lines is sent.
func ErrNoLines() *apperr.Error {
	return apperr.InvalidTransition("quote must have at least one line before it can be sent").WithCode(CodeQuoteNoLines)
}

// ErrNumberConflict marks a quote number collision. Callers may retry.
func ErrNumberConflict(err error) *apperr.Error {
	return apperr.Wrap(apperr.KindConflict, "quote number already in use", err).WithCode(CodeQuoteNumberConflict)
}

func invalidTransition(message string) *apperr.Error {
	return apperr.InvalidTransition(message).WithCode(CodeInvalidTransition)
}

func validationError(message string, details map[string]string) *apperr.Error {
	err := apperr.Validation(message).WithCode(CodeValidation)
	if len(details) > 0 {
		err = err.WithDetails(details)
	}
	return err
}
