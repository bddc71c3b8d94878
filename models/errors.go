package models

import "errors"

// Lifecycle violations. Callers match with errors.Is; messages carry the order/machine context.
var (
	ErrInvalidState          = errors.New("invalid state")
	ErrMachineBusy           = errors.New("machine busy")
	ErrHasDependents         = errors.New("has dependents")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrQuantityExceeded      = errors.New("quantity exceeds released quantity")
	ErrJustificationRequired = errors.New("justification is required for this stop reason")
	ErrUnrecognizedToken     = errors.New("scan token not recognized")
	ErrInactiveUser          = errors.New("user is inactive")
	ErrInvalidInput          = errors.New("invalid input")
)
