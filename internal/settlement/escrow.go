package settlement

import (
	"errors"

	"github.com/macrosim/fincore/internal/account"
	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/pkg/money"
)

// Escrow lifecycle statuses.
const (
	EscrowOpen           = "OPEN"
	EscrowClosed         = "CLOSED"
	EscrowClosedWithLeak = "CLOSED_WITH_LEAK"
)

// ErrEscrowNotFound means no escrow settlement exists for the given holder.
var ErrEscrowNotFound = errors.New("settlement: escrow not found")

// EscrowAccount holds a decedent's assets between death and distribution.
// Cash and portfolio are swept in whole on creation and drained leg by leg
// during execution; verification proves the account emptied exactly.
type EscrowAccount struct {
	HolderID  string
	Cash      int64
	Currency  money.Currency
	Portfolio account.Portfolio
	HeirID    string
	Status    string
	CreatedAt int64
}

// Escheated reports whether the estate has no heir and falls to the state.
func (a *EscrowAccount) Escheated() bool {
	return a.HeirID == ""
}

// Distribution is one payout leg of an escrow execution plan.
type Distribution struct {
	To     account.Account
	Amount int64
	Memo   string
	TxType string
}

// CreateSettlement sweeps the decedent's entire cash balance and portfolio
// into a new escrow account. The decedent is left empty; the heir, if any,
// is captured at creation time.
func (e *Engine) CreateSettlement(decedent account.Account, tick int64) (*EscrowAccount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	esc := &EscrowAccount{
		HolderID:  decedent.ID(),
		Currency:  money.DefaultCurrency,
		Status:    EscrowOpen,
		CreatedAt: tick,
	}

	if cash := decedent.Balance(money.DefaultCurrency); cash > 0 {
		if err := decedent.Withdraw(cash, money.DefaultCurrency); err != nil {
			return nil, err
		}
		esc.Cash = cash
	}
	if holder, ok := decedent.(account.PortfolioHolder); ok {
		esc.Portfolio = holder.Portfolio()
		holder.ClearPortfolio()
	}
	if hp, ok := decedent.(account.HeirProvider); ok {
		if heirID, has := hp.HeirID(); has {
			esc.HeirID = heirID
		}
	}
	if esc.Escheated() {
		e.log.Info().Str("holder", esc.HolderID).Int64("tick", tick).
			Msg("estate has no heir, escheating to the state")
	}

	e.settlements[esc.HolderID] = esc
	e.log.Info().Str("holder", esc.HolderID).Int64("cash", esc.Cash).
		Int("portfolio_lines", len(esc.Portfolio.Assets)).Int64("tick", tick).
		Msg("escrow settlement created")
	return esc, nil
}

// LookupSettlement returns the escrow account for a holder, if one exists.
func (e *Engine) LookupSettlement(holderID string) (*EscrowAccount, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, ok := e.settlements[holderID]
	return esc, ok
}

// ExecuteSettlement pays out the plan from escrowed cash. A leg the escrow
// cannot cover is skipped with a warning rather than aborting the whole
// distribution; every executed leg carries Metadata["executed"]="true".
// The portfolio, if any, is delivered to the first recipient that can hold
// one.
func (e *Engine) ExecuteSettlement(holderID string, plan []Distribution, tick int64) ([]ledger.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	esc, ok := e.settlements[holderID]
	if !ok {
		return nil, ErrEscrowNotFound
	}

	var txs []ledger.Transaction
	for _, leg := range plan {
		if err := money.ValidatePositive(leg.Amount); err != nil {
			e.log.Warn().Err(err).Str("holder", holderID).Str("to", leg.To.ID()).
				Msg("escrow leg rejected")
			continue
		}
		if esc.Cash < leg.Amount {
			e.log.Warn().Str("holder", holderID).Str("to", leg.To.ID()).
				Int64("amount", leg.Amount).Int64("escrow_cash", esc.Cash).
				Int64("tick", tick).Msg("escrow leg skipped: insufficient escrowed cash")
			continue
		}
		if err := leg.To.Deposit(leg.Amount, esc.Currency); err != nil {
			e.log.Warn().Err(err).Str("holder", holderID).Str("to", leg.To.ID()).
				Msg("escrow leg skipped: credit failed")
			continue
		}
		esc.Cash -= leg.Amount

		txType := leg.TxType
		if txType == "" {
			txType = ledger.TxTypeInheritance
		}
		tx := ledger.NewTransaction(holderID, leg.To.ID(), leg.Memo, txType,
			leg.Amount, esc.Currency, tick).WithMeta("executed", "true")
		e.publish(txSubject(tx.Type), tx)
		txs = append(txs, tx)
	}

	if !esc.Portfolio.Empty() {
		if holder := e.portfolioRecipient(esc, plan); holder != nil {
			holder.ReceivePortfolio(esc.Portfolio)
			esc.Portfolio = account.Portfolio{}
		}
	}
	return txs, nil
}

// portfolioRecipient picks who inherits the escrowed holdings: the heir
// recorded at creation when their account can hold a portfolio, otherwise
// the first plan recipient that can. Cash-leg outcomes do not affect the
// choice.
func (e *Engine) portfolioRecipient(esc *EscrowAccount, plan []Distribution) account.PortfolioHolder {
	if esc.HeirID != "" {
		if acct, ok := e.registry.Lookup(esc.HeirID); ok {
			if holder, ok := acct.(account.PortfolioHolder); ok {
				return holder
			}
		}
	}
	for _, leg := range plan {
		if holder, ok := leg.To.(account.PortfolioHolder); ok {
			return holder
		}
	}
	return nil
}

// VerifyAndClose audits the escrow after distribution. An exactly emptied
// account closes cleanly. Any residue is a conservation failure: it is
// logged as an error, the leftover cash is burned so it cannot silently
// re-enter circulation, and the account closes as CLOSED_WITH_LEAK.
func (e *Engine) VerifyAndClose(holderID string, tick int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	esc, ok := e.settlements[holderID]
	if !ok {
		return false
	}

	if esc.Cash == 0 && esc.Portfolio.Empty() {
		esc.Status = EscrowClosed
		e.log.Info().Str("holder", holderID).Int64("tick", tick).Msg("escrow closed clean")
		return true
	}

	e.log.Error().Str("holder", holderID).Int64("residual_cash", esc.Cash).
		Int("residual_portfolio_lines", len(esc.Portfolio.Assets)).Int64("tick", tick).
		Msg("escrow closed with leak, burning residue")
	if esc.Cash > 0 {
		if e.monetary != nil {
			e.monetary.RecordMonetaryContraction(esc.Cash, "escrow_burn:"+holderID, esc.Currency)
		}
		tx := ledger.NewTransaction(holderID, "escrow_sink", "residue", ledger.TxTypeEscrowBurn,
			esc.Cash, esc.Currency, tick).WithMeta("executed", "true")
		e.publish(txSubject(tx.Type), tx)
		esc.Cash = 0
	}
	esc.Portfolio = account.Portfolio{}
	esc.Status = EscrowClosedWithLeak
	return false
}
