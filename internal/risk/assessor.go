// Package risk scores loan applications. The assessor is pure policy: it
// holds configuration only, mutates nothing, and every call is a function
// of its inputs.
package risk

import (
	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/pkg/money"
)

// Policy defaults.
const (
	DefaultDTILimit        = 5.0
	DefaultCreditFloor     = 300
	DefaultPrimeScore      = 600
	DefaultPrimePremium    = 0.02
	DefaultSubprimePremium = 0.05
)

// Denial reasons, stable strings for downstream branching and logs.
const (
	ReasonApproved      = "approved"
	ReasonInvalidAmount = "invalid_amount"
	ReasonNoIncome      = "no_income"
	ReasonCreditFloor   = "credit_score_below_floor"
	ReasonDTIExceeded   = "dti_limit_exceeded"
)

// Profile is the borrower snapshot an application is scored against.
// Monetary figures are integer pennies.
type Profile struct {
	CreditScore  int
	AnnualIncome int64
	ExistingDebt int64
}

// Decision is the outcome of an assessment. Premium is the rate add-on
// over the lender's base rate and is meaningful only when Approved.
type Decision struct {
	Approved bool
	Premium  float64
	Reason   string
}

// Assessor applies lending policy to applications.
type Assessor struct {
	DTILimit        float64
	CreditFloor     int
	PrimeScore      int
	PrimePremium    float64
	SubprimePremium float64

	log zerolog.Logger
}

// NewAssessor returns an assessor with default policy.
func NewAssessor(log zerolog.Logger) *Assessor {
	return &Assessor{
		DTILimit:        DefaultDTILimit,
		CreditFloor:     DefaultCreditFloor,
		PrimeScore:      DefaultPrimeScore,
		PrimePremium:    DefaultPrimePremium,
		SubprimePremium: DefaultSubprimePremium,
		log:             log.With().Str("component", "risk").Logger(),
	}
}

// Assess scores a single application. Denials are ordinary outcomes, not
// errors: callers branch on Decision.Approved.
func (a *Assessor) Assess(p Profile, requested int64) Decision {
	if err := money.ValidatePositive(requested); err != nil {
		return a.deny(p, requested, ReasonInvalidAmount)
	}
	if p.AnnualIncome <= 0 {
		return a.deny(p, requested, ReasonNoIncome)
	}
	if p.CreditScore < a.CreditFloor {
		return a.deny(p, requested, ReasonCreditFloor)
	}

	dti := float64(p.ExistingDebt+requested) / float64(p.AnnualIncome)
	if dti > a.DTILimit {
		return a.deny(p, requested, ReasonDTIExceeded)
	}

	premium := a.SubprimePremium
	if p.CreditScore >= a.PrimeScore {
		premium = a.PrimePremium
	}
	return Decision{Approved: true, Premium: premium, Reason: ReasonApproved}
}

func (a *Assessor) deny(p Profile, requested int64, reason string) Decision {
	a.log.Debug().Int("credit_score", p.CreditScore).Int64("requested", requested).
		Str("reason", reason).Msg("loan application denied")
	return Decision{Reason: reason}
}
