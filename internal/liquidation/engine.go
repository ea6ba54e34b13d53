// Package liquidation winds up an insolvent agent's position: assets are
// sold at a fire-sale discount and the proceeds repay the agent's loans in
// deterministic order. Whatever a loan cannot recover is written off
// against the lender's retained earnings; whatever the loans do not absorb
// is returned to the agent as equity.
package liquidation

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/pkg/money"
)

// DefaultDiscountRate is the fire-sale haircut: assets recover half their
// book value, with the odd penny truncated.
const DefaultDiscountRate = 0.5

// Result summarizes a liquidation for the caller.
type Result struct {
	Proceeds   int64 // cash recovered from the asset sale
	Repaid     int64 // proceeds applied to loan principal
	WrittenOff int64 // principal absorbed by lender equity
	Residual   int64 // proceeds left over for the agent
}

// Engine liquidates agents against ledger snapshots. Stateless and
// copy-on-write like the other engines.
type Engine struct {
	DiscountRate float64
	log          zerolog.Logger
}

// NewEngine creates a liquidation engine with the default haircut.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		DiscountRate: DefaultDiscountRate,
		log:          log.With().Str("component", "liquidation").Logger(),
	}
}

// Liquidate sells the agent's assets and settles its loan book. Loans are
// visited bank by bank, loan by loan, in sorted id order, so a partial
// recovery always lands on the same loans. Every touched loan leaves the
// books: repaid in full, or defaulted with the shortfall written off.
func (e *Engine) Liquidate(snap *ledger.Ledger, agentID string, assetBookValue int64) (*ledger.Ledger, []ledger.Transaction, Result) {
	next := snap.Clone()
	var txs []ledger.Transaction
	var res Result

	res.Proceeds = money.ApplyDiscount(assetBookValue, e.DiscountRate)
	if assetBookValue > 0 {
		txs = append(txs, ledger.NewTransaction("market", agentID, "fire_sale",
			ledger.TxTypeLiquidationSale, res.Proceeds, money.DefaultCurrency, next.Tick).
			WithMeta("book_value", strconv.FormatInt(assetBookValue, 10)))
	}

	remaining := res.Proceeds
	for _, bankID := range next.BankIDs() {
		bank := next.Banks[bankID]
		for _, loan := range bank.LoansFor(agentID) {
			pay := loan.Remaining
			if pay > remaining {
				pay = remaining
			}
			if pay > 0 {
				loan.Remaining -= pay
				bank.Reserves[money.DefaultCurrency] += pay
				remaining -= pay
				res.Repaid += pay
				txs = append(txs, ledger.NewTransaction(agentID, bankID, loan.ID,
					ledger.TxTypeLoanRepaymentLiq, pay, money.DefaultCurrency, next.Tick))
			}
			if loan.Remaining > 0 {
				// Shortfall comes out of the lender's equity.
				loan.Defaulted = true
				bank.RetainedEarnings -= loan.Remaining
				res.WrittenOff += loan.Remaining
				txs = append(txs, ledger.NewTransaction(agentID, bankID, loan.ID,
					ledger.TxTypeLoanDefault, loan.Remaining, money.DefaultCurrency, next.Tick).
					WithMeta("cause", "liquidation_write_off"))
				e.log.Warn().Str("bank", bankID).Str("agent", agentID).Str("loan", loan.ID).
					Int64("written_off", loan.Remaining).Int64("tick", next.Tick).
					Msg("loan written off in liquidation")
			}
			delete(bank.Loans, loan.ID)
		}
	}

	res.Residual = remaining
	if remaining > 0 {
		txs = append(txs, ledger.NewTransaction("liquidator", agentID, "equity",
			ledger.TxTypeLiquidationResidual, remaining, money.DefaultCurrency, next.Tick))
	}

	e.log.Info().Str("agent", agentID).Int64("proceeds", res.Proceeds).
		Int64("repaid", res.Repaid).Int64("written_off", res.WrittenOff).
		Int64("residual", res.Residual).Int64("tick", next.Tick).
		Msg("liquidation complete")
	return next, txs, res
}
