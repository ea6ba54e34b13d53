package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrosim/fincore/pkg/money"
)

func TestCashAccountWithdraw(t *testing.T) {
	t.Run("should withdraw when funds are sufficient", func(t *testing.T) {
		a := NewCashAccount("H1", KindHousehold, WithBalance(money.DefaultCurrency, 100))

		require.NoError(t, a.Withdraw(40, money.DefaultCurrency))
		assert.Equal(t, int64(60), a.Balance(money.DefaultCurrency))
	})

	t.Run("should fail on insufficient funds without overdraft", func(t *testing.T) {
		a := NewCashAccount("H1", KindHousehold, WithBalance(money.DefaultCurrency, 10))

		err := a.Withdraw(20, money.DefaultCurrency)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, int64(10), a.Balance(money.DefaultCurrency))
	})

	t.Run("should allow central bank to go negative", func(t *testing.T) {
		cb := NewCashAccount("CENTRAL_BANK", KindCentralBank)

		require.NoError(t, cb.Withdraw(500, money.DefaultCurrency))
		assert.Equal(t, int64(-500), cb.Balance(money.DefaultCurrency))
	})

	t.Run("should reject negative amounts before touching state", func(t *testing.T) {
		a := NewCashAccount("H1", KindHousehold, WithBalance(money.DefaultCurrency, 100))

		assert.ErrorIs(t, a.Withdraw(-5, money.DefaultCurrency), money.ErrNegativeAmount)
		assert.ErrorIs(t, a.Deposit(-5, money.DefaultCurrency), money.ErrNegativeAmount)
		assert.Equal(t, int64(100), a.Balance(money.DefaultCurrency))
	})
}

func TestMoneySupplyClassification(t *testing.T) {
	t.Run("households and firms are money supply", func(t *testing.T) {
		assert.True(t, InMoneySupply(NewCashAccount("H", KindHousehold)))
		assert.True(t, InMoneySupply(NewCashAccount("F", KindFirm)))
	})

	t.Run("government, banks and central bank are not", func(t *testing.T) {
		assert.False(t, InMoneySupply(NewCashAccount("G", KindGovernment)))
		assert.False(t, InMoneySupply(NewCashAccount("B", KindBank)))
		assert.False(t, InMoneySupply(NewCashAccount("CB", KindCentralBank)))
	})

	t.Run("only central bank and overdraft system accounts are monetary authorities", func(t *testing.T) {
		assert.True(t, IsMonetaryAuthority(NewCashAccount("CB", KindCentralBank)))
		assert.True(t, IsMonetaryAuthority(NewCashAccount("SINK", KindSystem, WithOverdraft())))
		assert.False(t, IsMonetaryAuthority(NewCashAccount("SYS", KindSystem)))
		assert.False(t, IsMonetaryAuthority(NewCashAccount("G", KindGovernment)))
	})
}

func TestPortfolio(t *testing.T) {
	t.Run("should transfer holdings through clear and receive", func(t *testing.T) {
		src := NewCashAccount("F1", KindFirm)
		src.ReceivePortfolio(Portfolio{Assets: []PortfolioAsset{
			{Type: "stock", AssetID: "FIRM_9", Quantity: 10},
		}})
		dst := NewCashAccount("H1", KindHousehold)

		p := src.Portfolio()
		src.ClearPortfolio()
		dst.ReceivePortfolio(p)

		assert.True(t, src.Portfolio().Empty())
		require.Len(t, dst.Portfolio().Assets, 1)
		assert.Equal(t, "FIRM_9", dst.Portfolio().Assets[0].AssetID)
	})
}

func TestDirectory(t *testing.T) {
	t.Run("should register and resolve accounts", func(t *testing.T) {
		dir := NewDirectory()
		a := NewCashAccount("H1", KindHousehold)
		dir.Register(a)

		got, ok := dir.Lookup("H1")
		require.True(t, ok)
		assert.Equal(t, a, got)

		_, ok = dir.Lookup("missing")
		assert.False(t, ok)
	})

	t.Run("should deregister accounts", func(t *testing.T) {
		dir := NewDirectory()
		dir.Register(NewCashAccount("H1", KindHousehold))
		dir.Deregister("H1")

		_, ok := dir.Lookup("H1")
		assert.False(t, ok)
	})
}
