package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrMissingCreator is returned when no authenticated creator is attached
	ErrMissingCreator = errors.New("creator is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrEmptyUpdate is returned when a patch contains no fields
	ErrEmptyUpdate = errors.New("no fields to update")

	// ErrUnknownField is returned for filter or sort fields outside the contract
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownOperator is returned for condition operators outside the contract
	ErrUnknownOperator = errors.New("unknown filter operator")
)
