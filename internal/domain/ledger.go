package domain

import (
	"context"
	"time"
)

// Ledger is the immutable-ledger collaborator. RecordEvent failures are
// non-fatal to workflow state; Mint/Transfer failures are fatal to the
// operation that called them and must not leave state half committed.
type Ledger interface {
	RecordEvent(ctx context.Context, event LedgerEvent) (txID string, err error)
	MintCertificate(ctx context.Context, ownerAccount string, compliance ComplianceResult) (MintResult, error)
	TransferAsset(ctx context.Context, fromAccount, toAccount, assetID string) error
}

// AccountProvisioner provisions ledger accounts for parties that do not
// have one yet, typically the importer on first transfer.
type AccountProvisioner interface {
	EnsureAccount(ctx context.Context, partyID string) (account string, err error)
}

type LedgerEvent struct {
	WorkflowID string    `json:"workflow_id"`
	Kind       EventKind `json:"kind"`
	EventID    string    `json:"event_id"`
	QuantityKG float64   `json:"quantity_kg"`
	OccurredAt time.Time `json:"occurred_at"`
}

type MintResult struct {
	TxID         string
	SerialNumber int64
	AssetID      string
	Account      string
}
