package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit event subjects. Transaction events use the subject
// "settlement.<transaction type>" and carry the transaction itself.
const (
	SubjectMonetaryExpansion   = "monetary.expansion"
	SubjectMonetaryContraction = "monetary.contraction"
	SubjectIntegrityViolation  = "audit.violation"

	SubjectLoanBooked    = "finance.loan_booked"
	SubjectLoanDenied    = "finance.loan_denied"
	SubjectBondIssued    = "finance.bond_issued"
	SubjectBailoutIssued = "finance.bailout_issued"
	SubjectSolvencyState = "finance.solvency_state"
)

// Event is the envelope wrapping every published audit payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Tick      int64           `json:"tick"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps a payload in an event envelope. A payload that fails to
// marshal yields an envelope with empty data rather than an error; audit
// publication never gates core flow.
func NewEvent(eventType string, tick int64, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Tick:      tick,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// SupplyChangeEvent reports one money-supply boundary crossing.
type SupplyChangeEvent struct {
	Kind     string `json:"kind"`
	Amount   int64  `json:"amount"`
	Source   string `json:"source"`
	Currency string `json:"currency"`
}

// ViolationEvent reports one ledger-integrity finding.
type ViolationEvent struct {
	Check    string `json:"check"`
	Subject  string `json:"subject"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
	Detail   string `json:"detail"`
}

// LoanEvent reports a booked or denied loan application.
type LoanEvent struct {
	BankID     string  `json:"bank_id"`
	BorrowerID string  `json:"borrower_id"`
	Principal  int64   `json:"principal"`
	Rate       float64 `json:"rate,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// BondEvent reports a treasury bond issuance or purchase.
type BondEvent struct {
	BondID    string  `json:"bond_id"`
	OwnerID   string  `json:"owner_id"`
	FaceValue int64   `json:"face_value"`
	Yield     float64 `json:"yield"`
	QE        bool    `json:"qe,omitempty"`
}

// SolvencyEvent reports a solvency state transition.
type SolvencyEvent struct {
	AgentID string  `json:"agent_id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	ZScore  float64 `json:"z_score,omitempty"`
}
