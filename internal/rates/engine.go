// Package rates derives the policy rate and propagates it to bank balance
// sheets. Pure arithmetic over snapshots; no cash moves here.
package rates

import (
	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/internal/ledger"
)

// Policy defaults.
const (
	// DefaultSensitivity scales how hard the policy rate leans against
	// inflation.
	DefaultSensitivity = 0.5
)

// Sovereign debt risk tiers: debt-to-GDP thresholds and the yield premium
// bond buyers demand above them.
var debtRiskTiers = []struct {
	ratio   float64
	premium float64
}{
	{1.2, 0.05},
	{0.9, 0.02},
	{0.6, 0.005},
}

// Engine sets rates.
type Engine struct {
	Sensitivity float64
	log         zerolog.Logger
}

// NewEngine creates a rate engine with default sensitivity.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		Sensitivity: DefaultSensitivity,
		log:         log.With().Str("component", "rates").Logger(),
	}
}

// PolicyRate derives the central bank rate from the neutral rate and
// observed inflation. Floored at zero; no negative-rate regime here.
func (e *Engine) PolicyRate(neutralRate, inflation float64) float64 {
	rate := neutralRate + e.Sensitivity*inflation
	if rate < 0 {
		return 0
	}
	return rate
}

// DebtRiskPremium returns the extra yield demanded on sovereign debt at
// the given debt-to-GDP ratio.
func (e *Engine) DebtRiskPremium(debtToGDP float64) float64 {
	for _, tier := range debtRiskTiers {
		if debtToGDP >= tier.ratio {
			return tier.premium
		}
	}
	return 0
}

// UpdateBankRates writes the policy rate into every bank's base rate
// uniformly. Existing loans keep their contracted rate; only new
// originations see the change.
func (e *Engine) UpdateBankRates(snap *ledger.Ledger, policyRate float64) *ledger.Ledger {
	next := snap.Clone()
	for _, id := range next.BankIDs() {
		next.Banks[id].BaseRate = policyRate
	}
	e.log.Info().Float64("policy_rate", policyRate).Int("banks", len(next.Banks)).
		Int64("tick", next.Tick).Msg("bank base rates updated")
	return next
}
