package ledger

import (
	"github.com/google/uuid"

	"github.com/macrosim/fincore/pkg/money"
)

// Transaction types emitted by the settlement core.
const (
	TxTypeCreditCreation         = "credit_creation"
	TxTypeLoanInterest           = "loan_interest"
	TxTypeLoanRepayment          = "loan_repayment"
	TxTypeLoanRepaymentLiq       = "loan_repayment_liquidation"
	TxTypeLoanDefault            = "loan_default"
	TxTypeLiquidationSale        = "liquidation_sale"
	TxTypeLiquidationResidual    = "liquidation_residual"
	TxTypeBondInterest           = "bond_interest"
	TxTypeBondPurchase           = "bond_purchase"
	TxTypeBondRepayment          = "bond_repayment"
	TxTypeMoneyCreation          = "money_creation"
	TxTypeMoneyDestruction       = "money_destruction"
	TxTypeMonetaryExpansion      = "monetary_expansion"
	TxTypeMonetaryContraction    = "monetary_contraction"
	TxTypeFXSwap                 = "FX_SWAP"
	TxTypeTransfer               = "transfer"
	TxTypeInheritance            = "inheritance"
	TxTypeEscheatment            = "escheatment"
	TxTypeEscrowBurn             = "escrow_burn"
	TxTypeSystemDebtAdjustment   = "system_debt_adjustment"
	MarketFinancial              = "financial"
	MarketSettlement             = "settlement"
)

// Transaction is the immutable log record for every money movement. The
// integer TotalPennies is the single source of truth; any derived unit
// price must be computed from it, never the reverse.
type Transaction struct {
	ID           uuid.UUID
	BuyerID      string
	SellerID     string
	ItemID       string
	Quantity     float64
	TotalPennies int64
	Currency     money.Currency
	MarketID     string
	Type         string
	Tick         int64
	Metadata     map[string]string
}

// NewTransaction creates a settlement-market transaction record.
func NewTransaction(buyerID, sellerID, itemID, txType string, totalPennies int64, cur money.Currency, tick int64) Transaction {
	return Transaction{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		SellerID:     sellerID,
		ItemID:       itemID,
		Quantity:     1,
		TotalPennies: totalPennies,
		Currency:     cur,
		MarketID:     MarketSettlement,
		Type:         txType,
		Tick:         tick,
	}
}

// WithMeta returns a copy of the transaction with the metadata key set.
func (t Transaction) WithMeta(key, value string) Transaction {
	meta := make(map[string]string, len(t.Metadata)+1)
	for k, v := range t.Metadata {
		meta[k] = v
	}
	meta[key] = value
	t.Metadata = meta
	return t
}

// UnitPrice derives the per-unit price from the authoritative total.
func (t Transaction) UnitPrice() float64 {
	return money.UnitPrice(t.TotalPennies, t.Quantity)
}
