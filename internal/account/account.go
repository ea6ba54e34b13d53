// Package account defines the canonical account capability consumed by the
// settlement engine, plus the dependency-injected registry used to resolve
// agent ids. Agents are classified once at registration; the settlement hot
// path never probes capabilities at call time.
package account

import (
	"errors"
	"fmt"

	"github.com/macrosim/fincore/pkg/money"
)

// Kind classifies an account for money-supply accounting and overdraft
// policy.
type Kind string

const (
	KindHousehold   Kind = "household"
	KindFirm        Kind = "firm"
	KindBank        Kind = "bank"
	KindGovernment  Kind = "government"
	KindCentralBank Kind = "central_bank"
	KindSystem      Kind = "system"
)

// ErrInsufficientFunds is returned by Withdraw when an account cannot cover
// the requested amount and is not overdraft-exempt.
var ErrInsufficientFunds = errors.New("account: insufficient funds")

// Account is the capability every financial participant exposes: balance
// query, deposit and withdraw, all in integer pennies per currency.
// Households, firms, government, banks and the central bank all satisfy it.
type Account interface {
	ID() string
	Kind() Kind
	Balance(cur money.Currency) int64
	Deposit(amount int64, cur money.Currency) error
	Withdraw(amount int64, cur money.Currency) error
	// AllowsOverdraft reports whether the account may carry a negative
	// balance. Only the central bank and flagged system accounts return
	// true; this is the sole sanctioned channel for currency creation.
	AllowsOverdraft() bool
}

// InMoneySupply reports whether an account's balance counts toward M2.
// Household and firm deposits are money supply; government, bank and
// central-bank balances are not.
func InMoneySupply(a Account) bool {
	switch a.Kind() {
	case KindHousehold, KindFirm:
		return true
	default:
		return false
	}
}

// IsMonetaryAuthority reports whether an account may mint or burn currency.
func IsMonetaryAuthority(a Account) bool {
	k := a.Kind()
	return k == KindCentralBank || (k == KindSystem && a.AllowsOverdraft())
}

// PortfolioAsset is a single non-cash holding.
type PortfolioAsset struct {
	Type     string // "stock", "bond", ...
	AssetID  string
	Quantity float64
}

// Portfolio is a snapshot of an account's non-cash holdings.
type Portfolio struct {
	Assets []PortfolioAsset
}

// Empty reports whether the portfolio holds nothing.
func (p Portfolio) Empty() bool {
	return len(p.Assets) == 0
}

// PortfolioHolder is the optional capability for accounts that own non-cash
// assets, used by inheritance and liquidation flows.
type PortfolioHolder interface {
	Portfolio() Portfolio
	ClearPortfolio()
	ReceivePortfolio(Portfolio)
}

// HeirProvider is the optional capability for accounts that designate an
// heir.
type HeirProvider interface {
	// HeirID returns the heir's account id, or false when there is none.
	HeirID() (string, bool)
}

// Registry resolves account ids to live accounts. It is injected into every
// settlement and engine call; there is no process-wide lookup.
type Registry interface {
	Lookup(id string) (Account, bool)
}

// CashAccount is a plain in-memory Account implementation. The simulation
// uses it for system-owned accounts (treasury, central bank) and tests use
// it for agents.
type CashAccount struct {
	id        string
	kind      Kind
	overdraft bool
	balances  map[money.Currency]int64

	portfolio Portfolio
	heirID    string
	hasHeir   bool
}

// CashAccountOption configures a CashAccount.
type CashAccountOption func(*CashAccount)

// WithOverdraft flags the account as overdraft-exempt.
func WithOverdraft() CashAccountOption {
	return func(a *CashAccount) { a.overdraft = true }
}

// WithBalance seeds an opening balance.
func WithBalance(cur money.Currency, pennies int64) CashAccountOption {
	return func(a *CashAccount) { a.balances[cur] = pennies }
}

// WithHeir designates an heir account id.
func WithHeir(id string) CashAccountOption {
	return func(a *CashAccount) { a.heirID, a.hasHeir = id, true }
}

// NewCashAccount creates an account with zero balances.
func NewCashAccount(id string, kind Kind, opts ...CashAccountOption) *CashAccount {
	a := &CashAccount{
		id:       id,
		kind:     kind,
		balances: make(map[money.Currency]int64),
	}
	if kind == KindCentralBank {
		a.overdraft = true
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the account id.
func (a *CashAccount) ID() string { return a.id }

// Kind returns the account classification.
func (a *CashAccount) Kind() Kind { return a.kind }

// AllowsOverdraft reports whether the account may go negative.
func (a *CashAccount) AllowsOverdraft() bool { return a.overdraft }

// Balance returns the balance in the given currency.
func (a *CashAccount) Balance(cur money.Currency) int64 {
	return a.balances[cur]
}

// Balances returns a copy of all currency balances.
func (a *CashAccount) Balances() map[money.Currency]int64 {
	out := make(map[money.Currency]int64, len(a.balances))
	for cur, v := range a.balances {
		out[cur] = v
	}
	return out
}

// Deposit credits the account.
func (a *CashAccount) Deposit(amount int64, cur money.Currency) error {
	if err := money.ValidateAmount(amount); err != nil {
		return err
	}
	a.balances[cur] += amount
	return nil
}

// Withdraw debits the account, failing on insufficient funds unless the
// account is overdraft-exempt.
func (a *CashAccount) Withdraw(amount int64, cur money.Currency) error {
	if err := money.ValidateAmount(amount); err != nil {
		return err
	}
	if !a.overdraft && a.balances[cur] < amount {
		return fmt.Errorf("%w: account %s has %d %s, needs %d",
			ErrInsufficientFunds, a.id, a.balances[cur], cur, amount)
	}
	a.balances[cur] -= amount
	return nil
}

// Portfolio returns the account's non-cash holdings.
func (a *CashAccount) Portfolio() Portfolio {
	assets := make([]PortfolioAsset, len(a.portfolio.Assets))
	copy(assets, a.portfolio.Assets)
	return Portfolio{Assets: assets}
}

// ClearPortfolio removes all non-cash holdings.
func (a *CashAccount) ClearPortfolio() {
	a.portfolio = Portfolio{}
}

// ReceivePortfolio merges incoming holdings into the account.
func (a *CashAccount) ReceivePortfolio(p Portfolio) {
	a.portfolio.Assets = append(a.portfolio.Assets, p.Assets...)
}

// HeirID returns the designated heir, if any.
func (a *CashAccount) HeirID() (string, bool) {
	return a.heirID, a.hasHeir
}
