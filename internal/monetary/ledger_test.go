package monetary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrosim/fincore/internal/account"
	"github.com/macrosim/fincore/internal/settlement"
	"github.com/macrosim/fincore/pkg/money"
)

func newTestLedger(t *testing.T) (*Ledger, *account.Directory, *settlement.Engine) {
	t.Helper()
	dir := account.NewDirectory()
	led := NewLedger(dir, zerolog.Nop())
	eng := settlement.NewEngine(dir, zerolog.Nop())
	eng.SetMonetaryLedger(led)
	return led, dir, eng
}

func TestM2Tracking(t *testing.T) {
	t.Run("expected and actual agree after a mint", func(t *testing.T) {
		led, dir, eng := newTestLedger(t)
		cb := account.NewCashAccount("cb", account.KindCentralBank)
		hh := account.NewCashAccount("hh", account.KindHousehold)
		dir.Register(cb)
		dir.Register(hh)

		_, err := eng.CreateAndTransfer(cb, hh, 100_000, "seed", 1)
		require.NoError(t, err)

		assert.Equal(t, int64(100_000), led.ExpectedM2(money.DefaultCurrency))
		assert.Equal(t, int64(100_000), led.ActualM2(money.DefaultCurrency))
		assert.Zero(t, led.Drift(money.DefaultCurrency))
	})

	t.Run("in-supply churn leaves expected unchanged", func(t *testing.T) {
		led, dir, eng := newTestLedger(t)
		a := account.NewCashAccount("a", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 50_000))
		b := account.NewCashAccount("b", account.KindFirm)
		dir.Register(a)
		dir.Register(b)
		led.RecordMonetaryExpansion(50_000, "opening_stock", money.DefaultCurrency)

		_, err := eng.Transfer(a, b, 20_000, "groceries", 2, money.DefaultCurrency)
		require.NoError(t, err)

		assert.Equal(t, int64(50_000), led.ExpectedM2(money.DefaultCurrency))
		assert.Zero(t, led.Drift(money.DefaultCurrency))
	})

	t.Run("tax payment contracts expected in step with actual", func(t *testing.T) {
		led, dir, eng := newTestLedger(t)
		hh := account.NewCashAccount("hh", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 50_000))
		gov := account.NewCashAccount("gov", account.KindGovernment)
		dir.Register(hh)
		dir.Register(gov)
		led.RecordMonetaryExpansion(50_000, "opening_stock", money.DefaultCurrency)

		_, err := eng.Transfer(hh, gov, 10_000, "income_tax", 2, money.DefaultCurrency)
		require.NoError(t, err)

		assert.Equal(t, int64(40_000), led.ExpectedM2(money.DefaultCurrency))
		assert.Equal(t, int64(40_000), led.ActualM2(money.DefaultCurrency))
	})

	t.Run("drift flags an off-ledger balance edit", func(t *testing.T) {
		led, dir, _ := newTestLedger(t)
		hh := account.NewCashAccount("hh", account.KindHousehold)
		dir.Register(hh)

		// A deposit outside the settlement engine is exactly the corruption
		// the drift figure exists to catch.
		require.NoError(t, hh.Deposit(777, money.DefaultCurrency))

		assert.Equal(t, int64(777), led.Drift(money.DefaultCurrency))
	})

	t.Run("currencies are tracked independently", func(t *testing.T) {
		led, _, _ := newTestLedger(t)
		led.RecordMonetaryExpansion(1_000, "usd_seed", "USD")
		led.RecordMonetaryExpansion(2_000, "eur_seed", "EUR")
		assert.Equal(t, int64(1_000), led.ExpectedM2("USD"))
		assert.Equal(t, int64(2_000), led.ExpectedM2("EUR"))
	})
}

func TestSystemDebt(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		led, _, _ := newTestLedger(t)
		led.RecordSystemDebtIncrease(500_000, "bond_issue")
		led.RecordSystemDebtDecrease(200_000, "bond_retired")
		assert.Equal(t, int64(300_000), led.SystemDebt())
		assert.Zero(t, led.Anomalies())
	})

	t.Run("over-retirement clamps to zero and counts an anomaly", func(t *testing.T) {
		led, _, _ := newTestLedger(t)
		led.RecordSystemDebtIncrease(100, "bond_issue")
		led.RecordSystemDebtDecrease(150, "bond_retired")
		assert.Zero(t, led.SystemDebt())
		assert.Equal(t, int64(1), led.Anomalies())
	})
}

func TestExecuteBatch(t *testing.T) {
	seed := func(t *testing.T) (*Ledger, *settlement.Engine) {
		t.Helper()
		led, dir, eng := newTestLedger(t)
		dir.Register(account.NewCashAccount("cb", account.KindCentralBank))
		dir.Register(account.NewCashAccount("gov", account.KindGovernment,
			account.WithBalance(money.DefaultCurrency, 10_000)))
		dir.Register(account.NewCashAccount("hh", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 1_000)))
		return led, eng
	}

	t.Run("valid batch lands in full", func(t *testing.T) {
		led, eng := seed(t)
		txs, err := led.ExecuteBatch(eng, []Command{
			NewMintCommand("cb", "gov", 5_000, "qe"),
			NewTransferCommand("gov", "hh", 12_000, "stimulus"),
		}, 3)
		require.NoError(t, err)
		assert.Len(t, txs, 2)

		gov, _ := led.roster.Lookup("gov")
		hh, _ := led.roster.Lookup("hh")
		assert.Equal(t, int64(3_000), gov.Balance(money.DefaultCurrency))
		assert.Equal(t, int64(13_000), hh.Balance(money.DefaultCurrency))
	})

	t.Run("validation sees balances projected through earlier commands", func(t *testing.T) {
		led, eng := seed(t)
		// gov holds 10k; the transfer of 12k is only coverable because the
		// mint in front of it lands first.
		_, err := led.ExecuteBatch(eng, []Command{
			NewMintCommand("cb", "gov", 2_000, "qe"),
			NewTransferCommand("gov", "hh", 12_000, "stimulus"),
		}, 3)
		require.NoError(t, err)
	})

	t.Run("one bad command aborts everything", func(t *testing.T) {
		led, eng := seed(t)
		_, err := led.ExecuteBatch(eng, []Command{
			NewMintCommand("cb", "gov", 5_000, "qe"),
			NewTransferCommand("gov", "nobody", 100, "lost"),
		}, 3)
		assert.ErrorIs(t, err, ErrBatchAborted)

		gov, _ := led.roster.Lookup("gov")
		assert.Equal(t, int64(10_000), gov.Balance(money.DefaultCurrency))
		assert.Zero(t, led.ExpectedM2(money.DefaultCurrency))
	})

	t.Run("uncovered transfer aborts before execution", func(t *testing.T) {
		led, eng := seed(t)
		_, err := led.ExecuteBatch(eng, []Command{
			NewTransferCommand("hh", "gov", 1_001, "overreach"),
		}, 3)
		assert.ErrorIs(t, err, ErrBatchAborted)
	})

	t.Run("mint by a non-authority aborts", func(t *testing.T) {
		led, eng := seed(t)
		_, err := led.ExecuteBatch(eng, []Command{
			NewMintCommand("gov", "hh", 100, "forgery"),
		}, 3)
		assert.ErrorIs(t, err, ErrBatchAborted)
	})

	t.Run("burn into a non-authority sink aborts", func(t *testing.T) {
		led, eng := seed(t)
		_, err := led.ExecuteBatch(eng, []Command{
			NewBurnCommand("hh", "gov", 100, "misroute"),
		}, 3)
		assert.ErrorIs(t, err, ErrBatchAborted)
	})
}
