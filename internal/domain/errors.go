package domain

import "errors"

var (
	ErrWorkflowNotFound     = errors.New("workflow not found")
	ErrUnitNotFound         = errors.New("production unit not found")
	ErrAlertNotFound        = errors.New("deforestation alert not found")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientQuantity = errors.New("insufficient upstream quantity")
	ErrUnitReferenced       = errors.New("production unit referenced by collection events")
	ErrCertificateState     = errors.New("certificate state conflict")
	ErrIssuanceBlocked      = errors.New("certificate issuance blocked")
	ErrLedgerUnavailable    = errors.New("ledger collaborator unavailable")
)
