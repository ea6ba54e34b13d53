// Package settlement executes all money movement between agents. It is the
// only component allowed to mutate an agent balance. Multi-leg operations
// are atomic in the rollback sense: on any leg's failure every prior leg is
// undone before returning, restoring the exact pre-call state.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/internal/account"
	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/pkg/money"
)

var (
	// ErrInsufficientFunds is the expected, recoverable failure: the debtor
	// cannot cover the amount and is not overdraft-exempt. No state changed.
	ErrInsufficientFunds = account.ErrInsufficientFunds

	// ErrAgentNotFound means an agent id could not be resolved through the
	// registry.
	ErrAgentNotFound = errors.New("settlement: agent not found")

	// ErrUnauthorized means a privileged mint/burn primitive was invoked by
	// an account that is not a monetary authority.
	ErrUnauthorized = errors.New("settlement: not a monetary authority")
)

// MonetaryRecorder receives money-supply boundary crossings. The monetary
// ledger implements it; the engine works without one (recording is then
// skipped, which only makes sense in isolated tests).
type MonetaryRecorder interface {
	RecordMonetaryExpansion(amount int64, source string, cur money.Currency)
	RecordMonetaryContraction(amount int64, source string, cur money.Currency)
}

// EventSink publishes settlement audit events to external observers. A nil
// sink is a no-op; core semantics never depend on publication.
type EventSink interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// Credit is one leg of an atomic one-to-many settlement.
type Credit struct {
	To     account.Account
	Amount int64
	Memo   string
}

// Leg is one transfer in a multiparty settlement chain.
type Leg struct {
	Debtor   account.Account
	Creditor account.Account
	Amount   int64
	Memo     string
}

// FXMatch describes an atomic bilateral two-currency exchange.
type FXMatch struct {
	PartyAID  string
	PartyBID  string
	AmountA   int64
	CurrencyA money.Currency
	AmountB   int64
	CurrencyB money.Currency
	RateAToB  float64
	Tick      int64
}

// Engine is the settlement engine. All calls are synchronous in-memory
// state transitions; the mutex only guards against accidental concurrent
// callers so rollback sequences cannot interleave.
type Engine struct {
	mu       sync.Mutex
	registry account.Registry
	log      zerolog.Logger

	monetary MonetaryRecorder
	events   EventSink

	settlements       map[string]*EscrowAccount
	liquidationLosses int64
}

// NewEngine creates a settlement engine resolving agents through the given
// registry.
func NewEngine(registry account.Registry, log zerolog.Logger) *Engine {
	return &Engine{
		registry:    registry,
		log:         log.With().Str("component", "settlement").Logger(),
		settlements: make(map[string]*EscrowAccount),
	}
}

// SetMonetaryLedger wires the monetary ledger that records expansion and
// contraction when transfers cross the money-supply boundary.
func (e *Engine) SetMonetaryLedger(rec MonetaryRecorder) {
	e.monetary = rec
}

// SetEventSink wires an optional audit-event publisher.
func (e *Engine) SetEventSink(sink EventSink) {
	e.events = sink
}

// Transfer moves amount pennies from debtor to creditor. It returns the
// transaction record, or an error with zero state change: a negative
// amount is rejected before any mutation, an uncovered debit fails
// cleanly, and a failed credit reverses the debit before returning.
func (e *Engine) Transfer(debtor, creditor account.Account, amount int64, memo string, tick int64, cur money.Currency) (*ledger.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transferLocked(debtor, creditor, amount, memo, tick, cur)
}

func (e *Engine) transferLocked(debtor, creditor account.Account, amount int64, memo string, tick int64, cur money.Currency) (*ledger.Transaction, error) {
	if err := money.ValidatePositive(amount); err != nil {
		return nil, err
	}

	if err := e.move(debtor, creditor, amount, cur); err != nil {
		if !errors.Is(err, ErrInsufficientFunds) {
			e.log.Warn().Err(err).
				Str("debtor", debtor.ID()).Str("creditor", creditor.ID()).
				Int64("amount", amount).Int64("tick", tick).
				Msg("transfer rolled back")
		}
		return nil, err
	}

	e.recordBoundary(debtor, creditor, amount, memo, cur)

	tx := ledger.NewTransaction(debtor.ID(), creditor.ID(), memo, ledger.TxTypeTransfer, amount, cur, tick)
	e.publish(txSubject(tx.Type), tx)
	return &tx, nil
}

// move debits the debtor and credits the creditor, reversing the debit if
// the credit fails. It performs no monetary-ledger recording.
func (e *Engine) move(debtor, creditor account.Account, amount int64, cur money.Currency) error {
	if err := debtor.Withdraw(amount, cur); err != nil {
		return err
	}
	if err := creditor.Deposit(amount, cur); err != nil {
		if rbErr := debtor.Deposit(amount, cur); rbErr != nil {
			// A failed rollback leaves the ledger short; surface loudly.
			e.log.Error().Err(rbErr).
				Str("debtor", debtor.ID()).Int64("amount", amount).
				Msg("rollback deposit failed after credit failure")
		}
		return fmt.Errorf("credit %s failed: %w", creditor.ID(), err)
	}
	return nil
}

func (e *Engine) recordBoundary(debtor, creditor account.Account, amount int64, memo string, cur money.Currency) {
	if e.monetary == nil {
		return
	}
	fromSupply := account.InMoneySupply(debtor)
	toSupply := account.InMoneySupply(creditor)
	switch {
	case !fromSupply && toSupply:
		e.monetary.RecordMonetaryExpansion(amount, memo, cur)
	case fromSupply && !toSupply:
		e.monetary.RecordMonetaryContraction(amount, memo, cur)
	}
}

// SettleAtomic withdraws the sum of all credits from the debtor once, then
// applies each credit. If any credit fails, every already-applied credit
// and the original withdrawal are reversed; the post-call state equals the
// pre-call state exactly.
func (e *Engine) SettleAtomic(debtor account.Account, credits []Credit, tick int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	var total int64
	for _, c := range credits {
		if err := money.ValidatePositive(c.Amount); err != nil {
			e.log.Warn().Err(err).Str("debtor", debtor.ID()).Int64("tick", tick).
				Msg("atomic settlement rejected")
			return false
		}
		total += c.Amount
	}
	if total == 0 {
		return true
	}
	if !debtor.AllowsOverdraft() && debtor.Balance(money.DefaultCurrency) < total {
		return false
	}

	if err := debtor.Withdraw(total, money.DefaultCurrency); err != nil {
		return false
	}

	applied := make([]Credit, 0, len(credits))
	for _, c := range credits {
		if err := c.To.Deposit(c.Amount, money.DefaultCurrency); err != nil {
			e.unwindCredits(applied)
			if rbErr := debtor.Deposit(total, money.DefaultCurrency); rbErr != nil {
				e.log.Error().Err(rbErr).Str("debtor", debtor.ID()).
					Msg("atomic settlement rollback failed")
			}
			e.log.Warn().Err(err).Str("debtor", debtor.ID()).Str("creditor", c.To.ID()).
				Int64("tick", tick).Msg("atomic settlement rolled back")
			return false
		}
		applied = append(applied, c)
	}

	for _, c := range credits {
		e.recordBoundary(debtor, c.To, c.Amount, c.Memo, money.DefaultCurrency)
	}
	return true
}

func (e *Engine) unwindCredits(applied []Credit) {
	for i := len(applied) - 1; i >= 0; i-- {
		c := applied[i]
		if err := c.To.Withdraw(c.Amount, money.DefaultCurrency); err != nil {
			e.log.Error().Err(err).Str("creditor", c.To.ID()).Int64("amount", c.Amount).
				Msg("credit unwind failed")
		}
	}
}

// ExecuteMultipartySettlement runs a chain of transfers. If any leg fails,
// every already-executed leg is undone in reverse order.
func (e *Engine) ExecuteMultipartySettlement(legs []Leg, tick int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, leg := range legs {
		if err := money.ValidatePositive(leg.Amount); err != nil {
			e.log.Warn().Err(err).Int64("tick", tick).Msg("multiparty settlement rejected")
			return false
		}
	}

	executed := make([]Leg, 0, len(legs))
	for _, leg := range legs {
		if err := e.move(leg.Debtor, leg.Creditor, leg.Amount, money.DefaultCurrency); err != nil {
			for i := len(executed) - 1; i >= 0; i-- {
				prev := executed[i]
				if rbErr := e.move(prev.Creditor, prev.Debtor, prev.Amount, money.DefaultCurrency); rbErr != nil {
					e.log.Error().Err(rbErr).
						Str("debtor", prev.Debtor.ID()).Str("creditor", prev.Creditor.ID()).
						Msg("multiparty leg unwind failed")
				}
			}
			e.log.Warn().Err(err).Int("legs_executed", len(executed)).Int64("tick", tick).
				Msg("multiparty settlement rolled back")
			return false
		}
		executed = append(executed, leg)
	}

	for _, leg := range legs {
		e.recordBoundary(leg.Debtor, leg.Creditor, leg.Amount, leg.Memo, money.DefaultCurrency)
	}
	return true
}

// CreateAndTransfer is the privileged mint primitive. When the authority is
// the central bank (or a flagged monetary authority), the destination is
// credited with newly created currency and the expansion is logged to the
// monetary ledger. Any other authority degrades to an ordinary transfer.
func (e *Engine) CreateAndTransfer(authority, dest account.Account, amount int64, memo string, tick int64) (*ledger.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !account.IsMonetaryAuthority(authority) {
		return e.transferLocked(authority, dest, amount, memo, tick, money.DefaultCurrency)
	}

	if err := money.ValidatePositive(amount); err != nil {
		return nil, err
	}
	if err := dest.Deposit(amount, money.DefaultCurrency); err != nil {
		return nil, err
	}
	// Minting into a non-supply account (QE into the treasury) expands M2
	// only when the money is later spent into circulation.
	if e.monetary != nil && account.InMoneySupply(dest) {
		e.monetary.RecordMonetaryExpansion(amount, memo, money.DefaultCurrency)
	}

	tx := ledger.NewTransaction(authority.ID(), dest.ID(), "currency", ledger.TxTypeMoneyCreation,
		amount, money.DefaultCurrency, tick).WithMeta("executed", "true")
	e.log.Info().Int64("amount", amount).Str("dest", dest.ID()).Str("source", memo).
		Int64("tick", tick).Str("tag", "MONEY_SUPPLY").Msg("currency minted")
	e.publish(txSubject(tx.Type), tx)
	return &tx, nil
}

// TransferAndDestroy is the privileged burn primitive. When the sink is a
// monetary authority, the source is debited and the currency is destroyed,
// logged as contraction. Any other sink degrades to an ordinary transfer.
func (e *Engine) TransferAndDestroy(source, sink account.Account, amount int64, memo string, tick int64) (*ledger.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !account.IsMonetaryAuthority(sink) {
		return e.transferLocked(source, sink, amount, memo, tick, money.DefaultCurrency)
	}

	if err := money.ValidatePositive(amount); err != nil {
		return nil, err
	}
	if err := source.Withdraw(amount, money.DefaultCurrency); err != nil {
		return nil, err
	}
	if e.monetary != nil && account.InMoneySupply(source) {
		e.monetary.RecordMonetaryContraction(amount, memo, money.DefaultCurrency)
	}

	tx := ledger.NewTransaction(source.ID(), sink.ID(), "currency", ledger.TxTypeMoneyDestruction,
		amount, money.DefaultCurrency, tick).WithMeta("executed", "true")
	e.log.Info().Int64("amount", amount).Str("source_account", source.ID()).Str("source", memo).
		Int64("tick", tick).Str("tag", "MONEY_SUPPLY").Msg("currency burned")
	e.publish(txSubject(tx.Type), tx)
	return &tx, nil
}

// ExecuteSwap performs an atomic bilateral two-currency exchange. Both
// legs are pre-validated before either balance changes; failure of either
// leg aborts the whole swap with zero mutation.
func (e *Engine) ExecuteSwap(m FXMatch) *ledger.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()

	if money.ValidatePositive(m.AmountA) != nil || money.ValidatePositive(m.AmountB) != nil {
		e.log.Warn().Str("party_a", m.PartyAID).Str("party_b", m.PartyBID).
			Msg("swap rejected: invalid amounts")
		return nil
	}

	partyA, okA := e.registry.Lookup(m.PartyAID)
	partyB, okB := e.registry.Lookup(m.PartyBID)
	if !okA || !okB {
		e.log.Warn().Str("party_a", m.PartyAID).Str("party_b", m.PartyBID).
			Msg("swap rejected: unresolved party")
		return nil
	}

	if !partyA.AllowsOverdraft() && partyA.Balance(m.CurrencyA) < m.AmountA {
		return nil
	}
	if !partyB.AllowsOverdraft() && partyB.Balance(m.CurrencyB) < m.AmountB {
		return nil
	}

	if err := partyA.Withdraw(m.AmountA, m.CurrencyA); err != nil {
		return nil
	}
	if err := partyB.Withdraw(m.AmountB, m.CurrencyB); err != nil {
		e.refund(partyA, m.AmountA, m.CurrencyA)
		return nil
	}
	if err := partyA.Deposit(m.AmountB, m.CurrencyB); err != nil {
		e.refund(partyB, m.AmountB, m.CurrencyB)
		e.refund(partyA, m.AmountA, m.CurrencyA)
		return nil
	}
	if err := partyB.Deposit(m.AmountA, m.CurrencyA); err != nil {
		e.reclaim(partyA, m.AmountB, m.CurrencyB)
		e.refund(partyB, m.AmountB, m.CurrencyB)
		e.refund(partyA, m.AmountA, m.CurrencyA)
		return nil
	}

	tx := ledger.NewTransaction(m.PartyAID, m.PartyBID, "fx", ledger.TxTypeFXSwap,
		m.AmountA, m.CurrencyA, m.Tick).
		WithMeta("amount_b", fmt.Sprintf("%d", m.AmountB)).
		WithMeta("currency_b", string(m.CurrencyB)).
		WithMeta("rate_a_to_b", fmt.Sprintf("%g", m.RateAToB))
	e.publish(txSubject(tx.Type), tx)
	return &tx
}

// refund and reclaim are the swap unwind primitives. A failed compensation
// leaves a party short, so it is surfaced the same way move's rollback is.
func (e *Engine) refund(a account.Account, amount int64, cur money.Currency) {
	if err := a.Deposit(amount, cur); err != nil {
		e.log.Error().Err(err).Str("party", a.ID()).Int64("amount", amount).
			Str("currency", string(cur)).Msg("swap unwind deposit failed")
	}
}

func (e *Engine) reclaim(a account.Account, amount int64, cur money.Currency) {
	if err := a.Withdraw(amount, cur); err != nil {
		e.log.Error().Err(err).Str("party", a.ID()).Int64("amount", amount).
			Str("currency", string(cur)).Msg("swap unwind withdraw failed")
	}
}

// RecordLiquidation books the value destroyed by a firm liquidation and,
// when a government account is supplied, escheats any residual cash to it.
func (e *Engine) RecordLiquidation(agent account.Account, inventoryValue, capitalValue, recoveredCash int64, reason string, tick int64, government account.Account) {
	e.mu.Lock()
	defer e.mu.Unlock()

	loss := inventoryValue + capitalValue - recoveredCash
	e.liquidationLosses += loss
	e.log.Info().Str("agent", agent.ID()).Int64("loss", loss).Str("reason", reason).
		Int64("tick", tick).Msg("liquidation recorded")

	if government == nil {
		return
	}
	if residual := agent.Balance(money.DefaultCurrency); residual > 0 {
		if _, err := e.transferLocked(agent, government, residual, reason, tick, money.DefaultCurrency); err != nil {
			e.log.Error().Err(err).Str("agent", agent.ID()).Int64("residual", residual).
				Msg("escheatment transfer failed")
		}
	}
}

// TotalLiquidationLosses returns the cumulative value destroyed by
// liquidations.
func (e *Engine) TotalLiquidationLosses() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liquidationLosses
}

func (e *Engine) publish(subject string, data interface{}) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(context.Background(), subject, data); err != nil {
		e.log.Debug().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}

func txSubject(txType string) string {
	return "settlement." + txType
}
