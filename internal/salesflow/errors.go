package salesflow

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus  = errors.New("invalid status")
	ErrPricesLocked   = errors.New("prices cannot change once the order is final")
	ErrWrongStage     = errors.New("not available in the current stage")
	ErrLineIndex      = errors.New("line item out of range")
	ErrUnknownProduct = errors.New("product is not part of this order")
	ErrTerminalStage  = errors.New("payment followup is the last stage")
)

// ValidationError blocks a stage transition before any request is sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FetchError is returned when the visit or sale cannot be loaded
type FetchError struct {
	VisitID int64
	What    string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s for visit %d: %v", e.What, e.VisitID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubmitError is returned when the upsert request fails
type SubmitError struct {
	VisitID int64
	Err     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("failed to save sales for visit %d: %v", e.VisitID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
