package finance

import (
	"github.com/google/uuid"

	"github.com/macrosim/fincore/pkg/messaging"
)

// Covenants are the conditions attached to a bailout loan.
type Covenants struct {
	NoDividends        bool
	SalaryFreeze       bool
	MandatoryRepayment float64 // fraction of free cash flow swept into repayment
}

// BailoutCommand is an immutable instruction to extend a rescue loan. The
// command carries everything needed to execute it later; building one
// mutates no state, so a command can be constructed under distress review
// and executed, or discarded, at the tick boundary.
type BailoutCommand struct {
	ID          string
	FirmID      string
	Amount      int64
	Rate        float64
	Covenants   Covenants
	RequestTick int64
}

// RequestBailoutLoan builds a bailout command for a distressed firm. The
// rate is the prevailing base rate plus the penalty premium: rescue money
// is never cheap money.
func (o *Orchestrator) RequestBailoutLoan(firmID string, amount int64, baseRate float64, tick int64) BailoutCommand {
	cmd := BailoutCommand{
		ID:     uuid.NewString(),
		FirmID: firmID,
		Amount: amount,
		Rate:   baseRate + o.cfg.BailoutPenaltyPremium,
		Covenants: Covenants{
			NoDividends:        true,
			SalaryFreeze:       true,
			MandatoryRepayment: 0.5,
		},
		RequestTick: tick,
	}
	o.log.Info().Str("firm", firmID).Int64("amount", amount).Float64("rate", cmd.Rate).
		Int64("tick", tick).Msg("bailout loan requested")
	o.publish(messaging.SubjectBailoutIssued, messaging.NewEvent(
		messaging.SubjectBailoutIssued, tick, messaging.LoanEvent{
			BorrowerID: firmID, Principal: amount, Rate: cmd.Rate,
		}))
	return cmd
}
