// Package ledger holds the passive financial state aggregate: per-bank and
// treasury balances, loans, deposits and bonds, all in integer pennies. It
// carries no behavior beyond construction, cloning and lookups; every
// mutation flows through the settlement engine or a stateless engine
// operating on a cloned snapshot.
package ledger

import (
	"sort"

	"github.com/macrosim/fincore/pkg/money"
)

// Loan is a single loan on a bank's books.
// Invariant: 0 <= Remaining <= Principal.
type Loan struct {
	ID              string
	BorrowerID      string
	LenderID        string
	Principal       int64
	Remaining       int64
	Rate            float64
	OriginationTick int64
	DueTick         int64
	Defaulted       bool
}

// Deposit is a customer deposit account held at a bank.
// Invariant: Balance >= 0.
type Deposit struct {
	ID       string
	OwnerID  string
	Balance  int64
	Rate     float64
	Currency money.Currency
}

// Bond is a treasury bond held by an agent.
type Bond struct {
	ID           string
	OwnerID      string
	FaceValue    int64
	Yield        float64
	IssueTick    int64
	MaturityTick int64
	Currency     money.Currency
}

// Bank is the balance-sheet state of a single commercial bank.
// Accounting identity per currency:
//
//	reserves + sum(loan remaining) == sum(deposit balances) + retained earnings
type Bank struct {
	ID               string
	BaseRate         float64
	Reserves         map[money.Currency]int64
	RetainedEarnings int64
	Loans            map[string]*Loan
	Deposits         map[string]*Deposit
}

// NewBank creates an empty bank state.
func NewBank(id string, baseRate float64) *Bank {
	return &Bank{
		ID:       id,
		BaseRate: baseRate,
		Reserves: make(map[money.Currency]int64),
		Loans:    make(map[string]*Loan),
		Deposits: make(map[string]*Deposit),
	}
}

// DepositFor returns the deposit owned by the given agent, if any.
func (b *Bank) DepositFor(ownerID string) *Deposit {
	for _, id := range sortedKeys(b.Deposits) {
		if b.Deposits[id].OwnerID == ownerID {
			return b.Deposits[id]
		}
	}
	return nil
}

// LoansFor returns the agent's loans in deterministic id order.
func (b *Bank) LoansFor(borrowerID string) []*Loan {
	var out []*Loan
	for _, id := range sortedKeys(b.Loans) {
		if l := b.Loans[id]; l.BorrowerID == borrowerID {
			out = append(out, l)
		}
	}
	return out
}

// OutstandingDebt sums remaining principal across the agent's
// non-defaulted loans.
func (b *Bank) OutstandingDebt(borrowerID string) int64 {
	var total int64
	for _, l := range b.Loans {
		if l.BorrowerID == borrowerID && !l.Defaulted {
			total += l.Remaining
		}
	}
	return total
}

// TotalDeposits sums all deposit balances at the bank.
func (b *Bank) TotalDeposits() int64 {
	var total int64
	for _, d := range b.Deposits {
		total += d.Balance
	}
	return total
}

// TotalReserves sums reserve balances across all currencies one-to-one,
// matching how TotalDeposits aggregates mixed-currency deposits.
func (b *Bank) TotalReserves() int64 {
	var total int64
	for _, r := range b.Reserves {
		total += r
	}
	return total
}

// TotalLoanBook sums remaining principal across all loans.
func (b *Bank) TotalLoanBook() int64 {
	var total int64
	for _, l := range b.Loans {
		total += l.Remaining
	}
	return total
}

func (b *Bank) clone() *Bank {
	nb := &Bank{
		ID:               b.ID,
		BaseRate:         b.BaseRate,
		RetainedEarnings: b.RetainedEarnings,
		Reserves:         make(map[money.Currency]int64, len(b.Reserves)),
		Loans:            make(map[string]*Loan, len(b.Loans)),
		Deposits:         make(map[string]*Deposit, len(b.Deposits)),
	}
	for cur, v := range b.Reserves {
		nb.Reserves[cur] = v
	}
	for id, l := range b.Loans {
		cl := *l
		nb.Loans[id] = &cl
	}
	for id, d := range b.Deposits {
		cd := *d
		nb.Deposits[id] = &cd
	}
	return nb
}

// Treasury is the government's per-currency balance and outstanding bond
// map.
type Treasury struct {
	OwnerID  string
	Balances map[money.Currency]int64
	Bonds    map[string]*Bond
}

// NewTreasury creates an empty treasury for the given government id.
func NewTreasury(ownerID string) *Treasury {
	return &Treasury{
		OwnerID:  ownerID,
		Balances: make(map[money.Currency]int64),
		Bonds:    make(map[string]*Bond),
	}
}

func (t *Treasury) clone() *Treasury {
	nt := &Treasury{
		OwnerID:  t.OwnerID,
		Balances: make(map[money.Currency]int64, len(t.Balances)),
		Bonds:    make(map[string]*Bond, len(t.Bonds)),
	}
	for cur, v := range t.Balances {
		nt.Balances[cur] = v
	}
	for id, b := range t.Bonds {
		cb := *b
		nt.Bonds[id] = &cb
	}
	return nt
}

// Ledger is the aggregate root for all financial state. It is constructed
// once at simulation start, mutated every tick through engine outputs, and
// discarded at simulation end; it is never durably persisted here.
type Ledger struct {
	Tick     int64
	Treasury *Treasury
	Banks    map[string]*Bank
}

// New creates a ledger with an empty treasury for the given government id.
func New(governmentID string) *Ledger {
	return &Ledger{
		Treasury: NewTreasury(governmentID),
		Banks:    make(map[string]*Bank),
	}
}

// Clone deep-copies the ledger. Engines clone before mutating so rollback
// across chained engine calls is structural: the caller's snapshot is
// untouched until it adopts the returned one.
func (l *Ledger) Clone() *Ledger {
	nl := &Ledger{
		Tick:  l.Tick,
		Banks: make(map[string]*Bank, len(l.Banks)),
	}
	if l.Treasury != nil {
		nl.Treasury = l.Treasury.clone()
	}
	for id, b := range l.Banks {
		nl.Banks[id] = b.clone()
	}
	return nl
}

// BankIDs returns bank ids in deterministic order.
func (l *Ledger) BankIDs() []string {
	return sortedKeys(l.Banks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
