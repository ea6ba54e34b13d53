package finance

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config carries every policy knob of the financial core. Values come from
// the environment with production defaults baked into the tags.
type Config struct {
	// Lending policy.
	DTILimit         float64 `env:"FINCORE_DTI_LIMIT" envDefault:"5.0"`
	CreditScoreFloor int     `env:"FINCORE_CREDIT_FLOOR" envDefault:"300"`
	PrimeScore       int     `env:"FINCORE_PRIME_SCORE" envDefault:"600"`
	PrimePremium     float64 `env:"FINCORE_PRIME_PREMIUM" envDefault:"0.02"`
	SubprimePremium  float64 `env:"FINCORE_SUBPRIME_PREMIUM" envDefault:"0.05"`
	LoanTermTicks    int64   `env:"FINCORE_LOAN_TERM_TICKS" envDefault:"365"`

	// Liquidation.
	LiquidationDiscount float64 `env:"FINCORE_LIQUIDATION_DISCOUNT" envDefault:"0.5"`

	// Solvency.
	StartupGraceTicks int64   `env:"FINCORE_STARTUP_GRACE_TICKS" envDefault:"24"`
	AltmanThreshold   float64 `env:"FINCORE_ALTMAN_THRESHOLD" envDefault:"1.81"`

	// Sovereign debt.
	QEYieldThreshold      float64 `env:"FINCORE_QE_YIELD_THRESHOLD" envDefault:"0.10"`
	BondMaturityTicks     int64   `env:"FINCORE_BOND_MATURITY_TICKS" envDefault:"400"`
	BailoutPenaltyPremium float64 `env:"FINCORE_BAILOUT_PENALTY_PREMIUM" envDefault:"0.05"`
	CentralBankID         string  `env:"FINCORE_CENTRAL_BANK_ID" envDefault:"central_bank"`

	// Audit bus. Empty URL disables publication.
	NATSURL string `env:"FINCORE_NATS_URL"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the baked-in defaults without consulting the
// environment. Tests use it for a stable baseline.
func DefaultConfig() Config {
	return Config{
		DTILimit:              5.0,
		CreditScoreFloor:      300,
		PrimeScore:            600,
		PrimePremium:          0.02,
		SubprimePremium:       0.05,
		LoanTermTicks:         365,
		LiquidationDiscount:   0.5,
		StartupGraceTicks:     24,
		AltmanThreshold:       1.81,
		QEYieldThreshold:      0.10,
		BondMaturityTicks:     400,
		BailoutPenaltyPremium: 0.05,
		CentralBankID:         "central_bank",
	}
}
