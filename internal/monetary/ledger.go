// Package monetary tracks the money supply from two independent directions:
// an expected M2 figure moved only by recorded expansion and contraction
// events, and an actual M2 figure recomputed from live in-supply balances.
// Divergence between the two is the primary corruption signal for the
// integrity verifier.
package monetary

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/internal/account"
	"github.com/macrosim/fincore/pkg/money"
)

// Roster is the account universe the ledger measures actual M2 over. The
// account directory satisfies it.
type Roster interface {
	account.Registry
	All() []account.Account
}

// SupplyEvent is one recorded boundary crossing, kept for audit.
type SupplyEvent struct {
	Kind     string // "expansion" or "contraction"
	Amount   int64
	Source   string
	Currency money.Currency
}

const (
	supplyExpansion   = "expansion"
	supplyContraction = "contraction"
)

// Ledger is the monetary ledger. All figures are integer pennies.
type Ledger struct {
	mu     sync.Mutex
	roster Roster
	log    zerolog.Logger

	expectedM2 map[money.Currency]int64
	systemDebt int64
	anomalies  int64
	events     []SupplyEvent
}

// NewLedger creates a monetary ledger measuring actual M2 over the given
// roster. Expected M2 starts at zero; seed it by recording the opening
// stock as an expansion.
func NewLedger(roster Roster, log zerolog.Logger) *Ledger {
	return &Ledger{
		roster:     roster,
		log:        log.With().Str("component", "monetary").Logger(),
		expectedM2: make(map[money.Currency]int64),
	}
}

// RecordMonetaryExpansion moves expected M2 up. Called by the settlement
// engine whenever value crosses into the money supply, and on mint.
func (l *Ledger) RecordMonetaryExpansion(amount int64, source string, cur money.Currency) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expectedM2[cur] += amount
	l.events = append(l.events, SupplyEvent{Kind: supplyExpansion, Amount: amount, Source: source, Currency: cur})
	l.log.Debug().Int64("amount", amount).Str("source", source).Str("currency", string(cur)).
		Str("tag", "MONEY_SUPPLY").Msg("monetary expansion")
}

// RecordMonetaryContraction moves expected M2 down. Called by the
// settlement engine whenever value leaves the money supply, and on burn.
func (l *Ledger) RecordMonetaryContraction(amount int64, source string, cur money.Currency) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expectedM2[cur] -= amount
	l.events = append(l.events, SupplyEvent{Kind: supplyContraction, Amount: amount, Source: source, Currency: cur})
	l.log.Debug().Int64("amount", amount).Str("source", source).Str("currency", string(cur)).
		Str("tag", "MONEY_SUPPLY").Msg("monetary contraction")
}

// ExpectedM2 returns the event-derived money supply in the given currency.
func (l *Ledger) ExpectedM2(cur money.Currency) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expectedM2[cur]
}

// ActualM2 sums live balances of every in-supply account in the given
// currency.
func (l *Ledger) ActualM2(cur money.Currency) int64 {
	var total int64
	for _, a := range l.roster.All() {
		if account.InMoneySupply(a) {
			total += a.Balance(cur)
		}
	}
	return total
}

// Drift returns actual minus expected M2. Zero on a healthy ledger.
func (l *Ledger) Drift(cur money.Currency) int64 {
	return l.ActualM2(cur) - l.ExpectedM2(cur)
}

// RecordSystemDebtIncrease books newly issued system debt.
func (l *Ledger) RecordSystemDebtIncrease(amount int64, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.systemDebt += amount
	l.log.Debug().Int64("amount", amount).Str("reason", reason).
		Int64("system_debt", l.systemDebt).Msg("system debt increased")
}

// RecordSystemDebtDecrease retires system debt. Retiring more debt than is
// outstanding is an accounting anomaly: the tracker clamps at zero and the
// excess is logged rather than driving the figure negative.
func (l *Ledger) RecordSystemDebtDecrease(amount int64, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.systemDebt {
		l.anomalies++
		l.log.Error().Int64("amount", amount).Int64("system_debt", l.systemDebt).
			Str("reason", reason).Msg("debt decrease exceeds outstanding debt, clamping to zero")
		l.systemDebt = 0
		return
	}
	l.systemDebt -= amount
	l.log.Debug().Int64("amount", amount).Str("reason", reason).
		Int64("system_debt", l.systemDebt).Msg("system debt decreased")
}

// SystemDebt returns outstanding system debt. Never negative.
func (l *Ledger) SystemDebt() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.systemDebt
}

// Anomalies returns the count of accounting anomalies observed so far.
func (l *Ledger) Anomalies() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.anomalies
}

// Events returns a copy of the supply-event audit trail.
func (l *Ledger) Events() []SupplyEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SupplyEvent, len(l.events))
	copy(out, l.events)
	return out
}
