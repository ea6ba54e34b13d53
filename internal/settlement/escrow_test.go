package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrosim/fincore/internal/account"
	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/pkg/money"
)

func TestEscrowLifecycle(t *testing.T) {
	t.Run("create sweeps all cash and the portfolio", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		decedent := account.NewCashAccount("grandma", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 90_000),
			account.WithHeir("grandchild"))
		decedent.ReceivePortfolio(account.Portfolio{Assets: []account.PortfolioAsset{
			{Type: "stock", AssetID: "ACME", Quantity: 12},
		}})

		esc, err := eng.CreateSettlement(decedent, 20)
		require.NoError(t, err)

		assert.Equal(t, int64(90_000), esc.Cash)
		assert.Len(t, esc.Portfolio.Assets, 1)
		assert.Equal(t, "grandchild", esc.HeirID)
		assert.Equal(t, EscrowOpen, esc.Status)
		assert.False(t, esc.Escheated())

		assert.Zero(t, decedent.Balance(money.DefaultCurrency))
		assert.True(t, decedent.Portfolio().Empty())
	})

	t.Run("no heir means escheatment", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		decedent := account.NewCashAccount("loner", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 1_000))

		esc, err := eng.CreateSettlement(decedent, 20)
		require.NoError(t, err)
		assert.True(t, esc.Escheated())
	})

	t.Run("execution pays legs and skips the uncoverable", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		decedent := account.NewCashAccount("grandma", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 10_000))
		heir := account.NewCashAccount("grandchild", account.KindHousehold)
		gov := account.NewCashAccount("gov", account.KindGovernment)

		_, err := eng.CreateSettlement(decedent, 20)
		require.NoError(t, err)

		txs, err := eng.ExecuteSettlement("grandma", []Distribution{
			{To: gov, Amount: 2_000, Memo: "estate_tax", TxType: ledger.TxTypeEscheatment},
			{To: heir, Amount: 8_000, Memo: "bequest"},
			{To: heir, Amount: 1, Memo: "overdraw"}, // escrow is already empty
		}, 21)
		require.NoError(t, err)
		require.Len(t, txs, 2)

		assert.Equal(t, int64(2_000), gov.Balance(money.DefaultCurrency))
		assert.Equal(t, int64(8_000), heir.Balance(money.DefaultCurrency))
		for _, tx := range txs {
			assert.Equal(t, "true", tx.Metadata["executed"])
		}
		assert.Equal(t, ledger.TxTypeEscheatment, txs[0].Type)
		assert.Equal(t, ledger.TxTypeInheritance, txs[1].Type)
	})

	t.Run("portfolio is delivered to the heir during execution", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		decedent := account.NewCashAccount("grandma", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 100))
		decedent.ReceivePortfolio(account.Portfolio{Assets: []account.PortfolioAsset{
			{Type: "stock", AssetID: "ACME", Quantity: 12},
		}})
		heir := account.NewCashAccount("grandchild", account.KindHousehold)

		_, err := eng.CreateSettlement(decedent, 20)
		require.NoError(t, err)
		_, err = eng.ExecuteSettlement("grandma", []Distribution{
			{To: heir, Amount: 100, Memo: "bequest"},
		}, 21)
		require.NoError(t, err)

		assert.Len(t, heir.Portfolio().Assets, 1)
		esc, _ := eng.LookupSettlement("grandma")
		assert.True(t, esc.Portfolio.Empty())
	})

	t.Run("recorded heir takes the portfolio over earlier plan recipients", func(t *testing.T) {
		eng, dir, _ := newTestEngine(t)
		decedent := account.NewCashAccount("grandma", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 100),
			account.WithHeir("grandchild"))
		decedent.ReceivePortfolio(account.Portfolio{Assets: []account.PortfolioAsset{
			{Type: "stock", AssetID: "ACME", Quantity: 12},
		}})
		creditor := account.NewCashAccount("creditor", account.KindFirm)
		heir := account.NewCashAccount("grandchild", account.KindHousehold)
		dir.Register(heir)

		_, err := eng.CreateSettlement(decedent, 20)
		require.NoError(t, err)

		// The heir has no cash leg at all; the creditor's leg comes first.
		_, err = eng.ExecuteSettlement("grandma", []Distribution{
			{To: creditor, Amount: 100, Memo: "debt"},
		}, 21)
		require.NoError(t, err)

		assert.Len(t, heir.Portfolio().Assets, 1)
		assert.True(t, creditor.Portfolio().Empty())
	})

	t.Run("clean close after a full distribution", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		decedent := account.NewCashAccount("grandma", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 5_000))
		heir := account.NewCashAccount("grandchild", account.KindHousehold)

		_, err := eng.CreateSettlement(decedent, 20)
		require.NoError(t, err)
		_, err = eng.ExecuteSettlement("grandma", []Distribution{
			{To: heir, Amount: 5_000, Memo: "bequest"},
		}, 21)
		require.NoError(t, err)

		assert.True(t, eng.VerifyAndClose("grandma", 22))
		esc, _ := eng.LookupSettlement("grandma")
		assert.Equal(t, EscrowClosed, esc.Status)
	})

	t.Run("residue closes with leak and is burned", func(t *testing.T) {
		eng, _, rec := newTestEngine(t)
		decedent := account.NewCashAccount("grandma", account.KindHousehold,
			account.WithBalance(money.DefaultCurrency, 5_000))
		heir := account.NewCashAccount("grandchild", account.KindHousehold)

		_, err := eng.CreateSettlement(decedent, 20)
		require.NoError(t, err)
		_, err = eng.ExecuteSettlement("grandma", []Distribution{
			{To: heir, Amount: 4_000, Memo: "bequest"},
		}, 21)
		require.NoError(t, err)

		assert.False(t, eng.VerifyAndClose("grandma", 22))
		esc, _ := eng.LookupSettlement("grandma")
		assert.Equal(t, EscrowClosedWithLeak, esc.Status)
		assert.Zero(t, esc.Cash)
		assert.Equal(t, int64(1_000), rec.contracted)
	})

	t.Run("unknown holder cannot be executed or closed", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		_, err := eng.ExecuteSettlement("nobody", nil, 1)
		assert.ErrorIs(t, err, ErrEscrowNotFound)
		assert.False(t, eng.VerifyAndClose("nobody", 1))
	})
}
