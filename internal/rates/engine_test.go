package rates

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/macrosim/fincore/internal/ledger"
)

func TestPolicyRate(t *testing.T) {
	eng := NewEngine(zerolog.Nop())

	t.Run("leans against inflation", func(t *testing.T) {
		assert.InDelta(t, 0.04, eng.PolicyRate(0.02, 0.04), 1e-9)
	})

	t.Run("deflation cannot push the rate below zero", func(t *testing.T) {
		assert.Zero(t, eng.PolicyRate(0.01, -0.10))
	})
}

func TestDebtRiskPremium(t *testing.T) {
	eng := NewEngine(zerolog.Nop())

	cases := []struct {
		ratio   float64
		premium float64
	}{
		{0.5, 0},
		{0.6, 0.005},
		{0.89, 0.005},
		{0.9, 0.02},
		{1.19, 0.02},
		{1.2, 0.05},
		{2.5, 0.05},
	}
	for _, c := range cases {
		assert.Equal(t, c.premium, eng.DebtRiskPremium(c.ratio), "ratio %v", c.ratio)
	}
}

func TestUpdateBankRates(t *testing.T) {
	eng := NewEngine(zerolog.Nop())

	snap := ledger.New("gov")
	snap.Banks["b1"] = ledger.NewBank("b1", 0.03)
	snap.Banks["b2"] = ledger.NewBank("b2", 0.07)
	snap.Banks["b1"].Loans["l1"] = &ledger.Loan{ID: "l1", Rate: 0.05, Remaining: 100}

	next := eng.UpdateBankRates(snap, 0.042)

	assert.Equal(t, 0.042, next.Banks["b1"].BaseRate)
	assert.Equal(t, 0.042, next.Banks["b2"].BaseRate)
	// Contracted loans keep their rate.
	assert.Equal(t, 0.05, next.Banks["b1"].Loans["l1"].Rate)
	// Caller snapshot untouched.
	assert.Equal(t, 0.03, snap.Banks["b1"].BaseRate)
}
