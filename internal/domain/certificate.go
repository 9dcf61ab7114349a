package domain

import "time"

type CertificateStatus string

const (
	CertificateNotCreated            CertificateStatus = "NOT_CREATED"
	CertificatePendingVerification   CertificateStatus = "PENDING_VERIFICATION"
	CertificateCompliant             CertificateStatus = "COMPLIANT"
	CertificateInTransit             CertificateStatus = "IN_TRANSIT"
	CertificateTransferredToImporter CertificateStatus = "TRANSFERRED_TO_IMPORTER"
	CertificateCustomsVerified       CertificateStatus = "CUSTOMS_VERIFIED"
	CertificateDelivered             CertificateStatus = "DELIVERED"
)

var certificateOrder = map[CertificateStatus]int{
	CertificateNotCreated:            0,
	CertificatePendingVerification:   1,
	CertificateCompliant:             2,
	CertificateInTransit:             3,
	CertificateTransferredToImporter: 4,
	CertificateCustomsVerified:       5,
	CertificateDelivered:             6,
}

func (s CertificateStatus) Valid() bool {
	_, ok := certificateOrder[s]
	return ok
}

func (s CertificateStatus) Order() int {
	return certificateOrder[s]
}

// CanAdvanceTo reports whether next is a legal forward step. Each step
// requires the previous one; the single sanctioned fast path is
// COMPLIANT -> TRANSFERRED_TO_IMPORTER, taken when a transfer happens
// before the shipment is marked in transit.
func (s CertificateStatus) CanAdvanceTo(next CertificateStatus) bool {
	cur, ok := certificateOrder[s]
	if !ok {
		return false
	}
	target, ok := certificateOrder[next]
	if !ok {
		return false
	}
	if target == cur+1 {
		return true
	}
	return s == CertificateCompliant && next == CertificateTransferredToImporter
}

func (s CertificateStatus) AtLeast(other CertificateStatus) bool {
	return certificateOrder[s] >= certificateOrder[other]
}

// CertificateRecord is the issuance result handed back to callers.
type CertificateRecord struct {
	WorkflowID       string
	Status           CertificateStatus
	TxID             string
	SerialNumber     int64
	AssetID          string
	IssuerAccount    string
	TraceabilityHash string
	IssuedAt         time.Time
}
