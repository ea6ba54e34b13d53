// Package finance is the policy layer over the stateless engines: it turns
// loan applications, treasury funding needs and distress signals into
// engine calls and snapshot adoptions. Like the engines it never mutates a
// caller's snapshot; every operation returns the successor ledger.
package finance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/internal/lending"
	"github.com/macrosim/fincore/internal/liquidation"
	"github.com/macrosim/fincore/internal/rates"
	"github.com/macrosim/fincore/internal/risk"
	"github.com/macrosim/fincore/internal/settlement"
	"github.com/macrosim/fincore/pkg/messaging"
	"github.com/macrosim/fincore/pkg/money"
)

// DebtTracker is the slice of the monetary ledger the orchestrator feeds
// sovereign-debt movements into.
type DebtTracker interface {
	RecordSystemDebtIncrease(amount int64, reason string)
	RecordSystemDebtDecrease(amount int64, reason string)
}

// Application is a loan request against a specific bank.
type Application struct {
	BankID     string
	BorrowerID string
	Amount     int64
	Profile    risk.Profile
}

// LoanSummary is the outcome of a processed application.
type LoanSummary struct {
	Approved  bool
	Reason    string
	BankID    string
	Principal int64
	Rate      float64
}

// Indicators are the macro inputs to bond pricing.
type Indicators struct {
	CentralBankRate float64
	DebtToGDP       float64
}

// Orchestrator wires the engines together under one policy configuration.
type Orchestrator struct {
	cfg         Config
	assessor    *risk.Assessor
	lending     *lending.Engine
	liquidation *liquidation.Engine
	rates       *rates.Engine
	debt        DebtTracker
	events      settlement.EventSink
	log         zerolog.Logger
}

// NewOrchestrator builds the policy layer. The config's lending and
// liquidation knobs are pushed down into the engines.
func NewOrchestrator(cfg Config, debt DebtTracker, log zerolog.Logger) *Orchestrator {
	assessor := risk.NewAssessor(log)
	assessor.DTILimit = cfg.DTILimit
	assessor.CreditFloor = cfg.CreditScoreFloor
	assessor.PrimeScore = cfg.PrimeScore
	assessor.PrimePremium = cfg.PrimePremium
	assessor.SubprimePremium = cfg.SubprimePremium

	liq := liquidation.NewEngine(log)
	liq.DiscountRate = cfg.LiquidationDiscount

	return &Orchestrator{
		cfg:         cfg,
		assessor:    assessor,
		lending:     lending.NewEngine(log),
		liquidation: liq,
		rates:       rates.NewEngine(log),
		debt:        debt,
		log:         log.With().Str("component", "finance").Logger(),
	}
}

// SetEventSink wires an optional audit-event publisher.
func (o *Orchestrator) SetEventSink(sink settlement.EventSink) {
	o.events = sink
}

// ProcessLoanApplication runs the risk assessment and, on approval, books
// the loan through credit creation. A denial is an ordinary outcome: the
// summary says why, no transactions are produced, and the returned
// snapshot is the input unchanged.
func (o *Orchestrator) ProcessLoanApplication(snap *ledger.Ledger, app Application) (*ledger.Ledger, *LoanSummary, []ledger.Transaction, error) {
	profile := app.Profile
	if profile.ExistingDebt == 0 {
		profile.ExistingDebt = totalDebt(snap, app.BorrowerID)
	}

	decision := o.assessor.Assess(profile, app.Amount)
	if !decision.Approved {
		o.publish(messaging.SubjectLoanDenied, messaging.NewEvent(messaging.SubjectLoanDenied,
			snap.Tick, messaging.LoanEvent{
				BankID: app.BankID, BorrowerID: app.BorrowerID,
				Principal: app.Amount, Reason: decision.Reason,
			}))
		return snap, &LoanSummary{Reason: decision.Reason, BankID: app.BankID, Principal: app.Amount}, nil, nil
	}

	bank, ok := snap.Banks[app.BankID]
	if !ok {
		return snap, nil, nil, fmt.Errorf("%w: %q", lending.ErrBankNotFound, app.BankID)
	}
	rate := bank.BaseRate + decision.Premium

	next, txs, err := o.lending.BookLoan(snap, app.BankID, app.BorrowerID, app.Amount, rate, o.cfg.LoanTermTicks)
	if err != nil {
		return snap, nil, nil, err
	}

	o.publish(messaging.SubjectLoanBooked, messaging.NewEvent(messaging.SubjectLoanBooked,
		next.Tick, messaging.LoanEvent{
			BankID: app.BankID, BorrowerID: app.BorrowerID,
			Principal: app.Amount, Rate: rate,
		}))
	return next, &LoanSummary{
		Approved: true, Reason: decision.Reason,
		BankID: app.BankID, Principal: app.Amount, Rate: rate,
	}, txs, nil
}

// IssueTreasuryBonds funds the treasury by selling a bond. The yield is
// the central bank rate plus the sovereign risk premium for the current
// debt load. Above the QE threshold the market refuses the paper and the
// central bank buys with created money; below it the first commercial bank
// whose reserves cover the face value buys. No willing buyer leaves the
// issue unsold.
func (o *Orchestrator) IssueTreasuryBonds(snap *ledger.Ledger, amount int64, ind Indicators) (*ledger.Ledger, []ledger.Transaction, error) {
	if err := money.ValidatePositive(amount); err != nil {
		return snap, nil, err
	}
	yield := ind.CentralBankRate + o.rates.DebtRiskPremium(ind.DebtToGDP)

	next := snap.Clone()
	bond := &ledger.Bond{
		ID:           uuid.NewString(),
		FaceValue:    amount,
		Yield:        yield,
		IssueTick:    next.Tick,
		MaturityTick: next.Tick + o.cfg.BondMaturityTicks,
		Currency:     money.DefaultCurrency,
	}

	var tx ledger.Transaction
	switch {
	case yield > o.cfg.QEYieldThreshold:
		// Market refuses: QE. The central bank's money is created at
		// purchase; treasury cash appears with no bank debited.
		bond.OwnerID = o.cfg.CentralBankID
		next.Treasury.Balances[money.DefaultCurrency] += amount
		tx = ledger.NewTransaction(o.cfg.CentralBankID, next.Treasury.OwnerID, bond.ID,
			ledger.TxTypeBondPurchase, amount, money.DefaultCurrency, next.Tick).
			WithMeta("qe", "true")
		o.log.Info().Str("bond", bond.ID).Int64("face_value", amount).
			Float64("yield", yield).Int64("tick", next.Tick).
			Msg("treasury bond bought by central bank")
	default:
		buyer := firstCoveringBank(next, amount)
		if buyer == nil {
			o.log.Warn().Int64("face_value", amount).Float64("yield", yield).
				Int64("tick", next.Tick).Msg("treasury bond issue found no buyer")
			return snap, nil, nil
		}
		bond.OwnerID = buyer.ID
		buyer.Reserves[money.DefaultCurrency] -= amount
		// The bond sits off the bank identity, so the purchase comes out
		// of equity until coupons and repayment restore it.
		buyer.RetainedEarnings -= amount
		next.Treasury.Balances[money.DefaultCurrency] += amount
		tx = ledger.NewTransaction(buyer.ID, next.Treasury.OwnerID, bond.ID,
			ledger.TxTypeBondPurchase, amount, money.DefaultCurrency, next.Tick)
		o.log.Info().Str("bond", bond.ID).Str("buyer", buyer.ID).
			Int64("face_value", amount).Float64("yield", yield).Int64("tick", next.Tick).
			Msg("treasury bond sold")
	}

	next.Treasury.Bonds[bond.ID] = bond
	if o.debt != nil {
		o.debt.RecordSystemDebtIncrease(amount, "bond_issue:"+bond.ID)
	}
	o.publish(messaging.SubjectBondIssued, messaging.NewEvent(messaging.SubjectBondIssued,
		next.Tick, messaging.BondEvent{
			BondID: bond.ID, OwnerID: bond.OwnerID, FaceValue: amount,
			Yield: yield, QE: bond.OwnerID == o.cfg.CentralBankID,
		}))
	return next, []ledger.Transaction{tx}, nil
}

// ServiceDebt runs one tick of debt servicing and retires any bonds that
// reached maturity, booking the retired face value against system debt.
func (o *Orchestrator) ServiceDebt(snap *ledger.Ledger) (*ledger.Ledger, []ledger.Transaction) {
	next, txs := o.lending.ServiceDebt(snap)
	next, retired := o.lending.RetireMaturedBonds(next)
	for _, tx := range retired {
		if o.debt != nil {
			o.debt.RecordSystemDebtDecrease(tx.TotalPennies, "bond_retired:"+tx.ItemID)
		}
	}
	return next, append(txs, retired...)
}

// LiquidateFirm winds up an insolvent firm's banking position.
func (o *Orchestrator) LiquidateFirm(snap *ledger.Ledger, firmID string, assetBookValue int64) (*ledger.Ledger, []ledger.Transaction, liquidation.Result) {
	return o.liquidation.Liquidate(snap, firmID, assetBookValue)
}

func totalDebt(snap *ledger.Ledger, borrowerID string) int64 {
	var total int64
	for _, bank := range snap.Banks {
		total += bank.OutstandingDebt(borrowerID)
	}
	return total
}

func firstCoveringBank(snap *ledger.Ledger, amount int64) *ledger.Bank {
	for _, id := range snap.BankIDs() {
		if b := snap.Banks[id]; b.Reserves[money.DefaultCurrency] >= amount {
			return b
		}
	}
	return nil
}

func (o *Orchestrator) publish(subject string, event messaging.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(context.Background(), subject, event); err != nil {
		o.log.Debug().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}
