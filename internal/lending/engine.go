// Package lending books loans and services outstanding debt. The engine is
// stateless and copy-on-write: every call clones the incoming ledger
// snapshot, mutates the clone, and returns it with the transactions that
// describe the mutation. The caller's snapshot is never touched, so an
// abandoned result is a free rollback.
package lending

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/pkg/money"
)

// ErrBankNotFound means the named bank has no balance sheet in the
// snapshot.
var ErrBankNotFound = errors.New("lending: bank not found")

// Engine books and services loans against ledger snapshots.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a lending engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "lending").Logger()}
}

// BookLoan creates a loan through credit creation: the bank writes a new
// loan asset and simultaneously credits the borrower's deposit with the
// principal. No reserves move; both sides of the bank's balance sheet grow
// by the principal, preserving the accounting identity.
func (e *Engine) BookLoan(snap *ledger.Ledger, bankID, borrowerID string, principal int64, rate float64, termTicks int64) (*ledger.Ledger, []ledger.Transaction, error) {
	if err := money.ValidatePositive(principal); err != nil {
		return nil, nil, err
	}

	next := snap.Clone()
	bank, ok := next.Banks[bankID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrBankNotFound, bankID)
	}

	loan := &ledger.Loan{
		ID:              uuid.NewString(),
		BorrowerID:      borrowerID,
		LenderID:        bankID,
		Principal:       principal,
		Remaining:       principal,
		Rate:            rate,
		OriginationTick: next.Tick,
		DueTick:         next.Tick + termTicks,
	}
	bank.Loans[loan.ID] = loan

	dep := bank.DepositFor(borrowerID)
	if dep == nil {
		dep = &ledger.Deposit{
			ID:       uuid.NewString(),
			OwnerID:  borrowerID,
			Currency: money.DefaultCurrency,
		}
		bank.Deposits[dep.ID] = dep
	}
	dep.Balance += principal

	tx := ledger.NewTransaction(bankID, borrowerID, loan.ID, ledger.TxTypeCreditCreation,
		principal, money.DefaultCurrency, next.Tick).
		WithMeta("rate", fmt.Sprintf("%g", rate)).
		WithMeta("due_tick", fmt.Sprintf("%d", loan.DueTick))

	e.log.Info().Str("bank", bankID).Str("borrower", borrowerID).
		Int64("principal", principal).Float64("rate", rate).Int64("tick", next.Tick).
		Msg("loan booked")
	return next, []ledger.Transaction{tx}, nil
}

// ServiceDebt runs one tick of debt servicing over the whole snapshot:
// daily interest on every performing loan, principal collection on loans
// at their due tick, and daily coupons on outstanding treasury bonds. A
// borrower who cannot cover a charge is not defaulted here; interest is
// skipped and principal collection takes whatever the deposit holds.
// Defaults are the liquidation engine's call.
func (e *Engine) ServiceDebt(snap *ledger.Ledger) (*ledger.Ledger, []ledger.Transaction) {
	next := snap.Clone()
	var txs []ledger.Transaction

	for _, bankID := range next.BankIDs() {
		bank := next.Banks[bankID]
		for _, loanID := range sortedLoanIDs(bank) {
			loan := bank.Loans[loanID]
			if loan.Defaulted {
				continue
			}
			if tx := e.chargeInterest(bank, loan, next.Tick); tx != nil {
				txs = append(txs, *tx)
			}
			if next.Tick >= loan.DueTick {
				if tx := e.collectPrincipal(bank, loan, next.Tick); tx != nil {
					txs = append(txs, *tx)
				}
			}
		}
	}

	txs = append(txs, e.payCoupons(next)...)
	return next, txs
}

// chargeInterest debits the borrower's deposit and credits the bank's
// retained earnings. An uncovered charge is skipped with a warning; the
// loan stays performing.
func (e *Engine) chargeInterest(bank *ledger.Bank, loan *ledger.Loan, tick int64) *ledger.Transaction {
	interest := money.DailyInterest(loan.Remaining, loan.Rate)
	if interest <= 0 {
		return nil
	}

	dep := bank.DepositFor(loan.BorrowerID)
	if dep == nil || dep.Balance < interest {
		e.log.Warn().Str("bank", bank.ID).Str("borrower", loan.BorrowerID).
			Str("loan", loan.ID).Int64("interest_due", interest).Int64("tick", tick).
			Msg("interest charge skipped, deposit cannot cover")
		return nil
	}

	dep.Balance -= interest
	bank.RetainedEarnings += interest
	tx := ledger.NewTransaction(loan.BorrowerID, bank.ID, loan.ID, ledger.TxTypeLoanInterest,
		interest, money.DefaultCurrency, tick)
	return &tx
}

// collectPrincipal settles as much of a due loan as the borrower's deposit
// covers. A full collection removes the loan; a partial one leaves the
// reduced remainder on the books for the next tick.
func (e *Engine) collectPrincipal(bank *ledger.Bank, loan *ledger.Loan, tick int64) *ledger.Transaction {
	dep := bank.DepositFor(loan.BorrowerID)
	if dep == nil || dep.Balance <= 0 {
		return nil
	}

	amount := loan.Remaining
	if amount > dep.Balance {
		amount = dep.Balance
	}
	dep.Balance -= amount
	loan.Remaining -= amount
	if loan.Remaining == 0 {
		delete(bank.Loans, loan.ID)
		e.log.Info().Str("bank", bank.ID).Str("borrower", loan.BorrowerID).
			Str("loan", loan.ID).Int64("amount", amount).Int64("tick", tick).
			Msg("loan repaid at maturity")
	} else {
		e.log.Warn().Str("bank", bank.ID).Str("borrower", loan.BorrowerID).
			Str("loan", loan.ID).Int64("collected", amount).Int64("remaining", loan.Remaining).
			Int64("tick", tick).Msg("partial principal collection at maturity")
	}
	tx := ledger.NewTransaction(loan.BorrowerID, bank.ID, loan.ID, ledger.TxTypeLoanRepayment,
		amount, money.DefaultCurrency, tick)
	return &tx
}

// payCoupons pays one tick of interest on every outstanding treasury bond.
// Coupons are always paid in the default currency, whatever currency the
// bond itself is denominated in. Bank-held bonds settle inside the
// snapshot; for any other holder the returned transaction is the payment
// instruction and carries Metadata["holder"]="external".
func (e *Engine) payCoupons(next *ledger.Ledger) []ledger.Transaction {
	var txs []ledger.Transaction
	treasury := next.Treasury
	if treasury == nil {
		return nil
	}
	for _, bondID := range sortedBondIDs(treasury) {
		bond := treasury.Bonds[bondID]
		coupon := money.DailyInterest(bond.FaceValue, bond.Yield)
		if coupon <= 0 {
			continue
		}
		treasury.Balances[money.DefaultCurrency] -= coupon

		tx := ledger.NewTransaction(treasury.OwnerID, bond.OwnerID, bond.ID,
			ledger.TxTypeBondInterest, coupon, money.DefaultCurrency, next.Tick)
		if bank, ok := next.Banks[bond.OwnerID]; ok {
			bank.Reserves[money.DefaultCurrency] += coupon
			bank.RetainedEarnings += coupon
		} else {
			tx = tx.WithMeta("holder", "external")
		}
		txs = append(txs, tx)
	}
	return txs
}

// RetireMaturedBonds repays face value on every bond at or past maturity
// and removes it from the treasury's books. Principal, unlike coupons, is
// repaid in the bond's own currency.
func (e *Engine) RetireMaturedBonds(snap *ledger.Ledger) (*ledger.Ledger, []ledger.Transaction) {
	next := snap.Clone()
	treasury := next.Treasury
	if treasury == nil {
		return next, nil
	}

	var txs []ledger.Transaction
	for _, bondID := range sortedBondIDs(treasury) {
		bond := treasury.Bonds[bondID]
		if next.Tick < bond.MaturityTick {
			continue
		}
		treasury.Balances[bond.Currency] -= bond.FaceValue
		delete(treasury.Bonds, bondID)

		tx := ledger.NewTransaction(treasury.OwnerID, bond.OwnerID, bond.ID,
			ledger.TxTypeBondRepayment, bond.FaceValue, bond.Currency, next.Tick)
		if bank, ok := next.Banks[bond.OwnerID]; ok {
			// Bonds are carried off the bank identity; purchase hit equity,
			// repayment restores it.
			bank.Reserves[bond.Currency] += bond.FaceValue
			bank.RetainedEarnings += bond.FaceValue
		} else {
			tx = tx.WithMeta("holder", "external")
		}
		txs = append(txs, tx)
		e.log.Info().Str("bond", bond.ID).Str("holder", bond.OwnerID).
			Int64("face_value", bond.FaceValue).Int64("tick", next.Tick).
			Msg("bond retired at maturity")
	}
	return next, txs
}

func sortedLoanIDs(b *ledger.Bank) []string {
	ids := make([]string, 0, len(b.Loans))
	for id := range b.Loans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedBondIDs(t *ledger.Treasury) []string {
	ids := make([]string, 0, len(t.Bonds))
	for id := range t.Bonds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
