// fincored runs the financial core as a standalone simulation daemon: it
// seeds a small economy, then advances ticks until interrupted, verifying
// ledger integrity at every boundary. Bank state, money supply and audit
// findings go to the log; transaction events go to NATS when a broker is
// configured.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/macrosim/fincore/internal/account"
	"github.com/macrosim/fincore/internal/audit"
	"github.com/macrosim/fincore/internal/finance"
	"github.com/macrosim/fincore/internal/ledger"
	"github.com/macrosim/fincore/internal/monetary"
	"github.com/macrosim/fincore/internal/rates"
	"github.com/macrosim/fincore/internal/risk"
	"github.com/macrosim/fincore/internal/settlement"
	"github.com/macrosim/fincore/pkg/messaging"
	"github.com/macrosim/fincore/pkg/money"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := finance.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	directory := account.NewDirectory()
	supply := monetary.NewLedger(directory, log)
	engine := settlement.NewEngine(directory, log)
	engine.SetMonetaryLedger(supply)
	orchestrator := finance.NewOrchestrator(cfg, supply, log)
	verifier := audit.NewVerifier(log)
	rateEngine := rates.NewEngine(log)

	if cfg.NATSURL != "" {
		client, err := messaging.NewClient(messaging.Config{
			URL:            cfg.NATSURL,
			Name:           "fincored",
			ReconnectWait:  time.Second,
			MaxReconnects:  10,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("audit bus unavailable, running silent")
		} else {
			defer client.Close()
			if err := client.EnsureAuditStream(); err != nil {
				log.Warn().Err(err).Msg("audit stream unavailable")
			}
			sink := messaging.NewGuardedSink(client)
			engine.SetEventSink(sink)
			orchestrator.SetEventSink(sink)
			log.Info().Str("url", cfg.NATSURL).Msg("audit bus connected")
		}
	}

	// Seed a minimal economy: a central bank, a government, one commercial
	// bank and two households funded by an opening mint.
	centralBank := account.NewCashAccount(cfg.CentralBankID, account.KindCentralBank)
	government := account.NewCashAccount("government", account.KindGovernment)
	alice := account.NewCashAccount("alice", account.KindHousehold)
	bob := account.NewCashAccount("bob", account.KindHousehold)
	for _, a := range []account.Account{centralBank, government, alice, bob} {
		directory.Register(a)
	}

	snap := ledger.New(government.ID())
	snap.Banks["first_national"] = ledger.NewBank("first_national", 0.03)

	if _, err := engine.CreateAndTransfer(centralBank, alice, 50_000_00, "opening_stock", 0); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	if _, err := engine.CreateAndTransfer(centralBank, bob, 50_000_00, "opening_stock", 0); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	next, summary, _, err := orchestrator.ProcessLoanApplication(snap, finance.Application{
		BankID:     "first_national",
		BorrowerID: alice.ID(),
		Amount:     10_000_00,
		Profile:    risk.Profile{CreditScore: 700, AnnualIncome: 600_000_00},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("loan pipeline failed")
	}
	snap = next
	log.Info().Bool("approved", summary.Approved).Float64("rate", summary.Rate).
		Msg("seed loan processed")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	currencies := []money.Currency{money.DefaultCurrency}

	for {
		select {
		case <-stop:
			log.Info().Int64("tick", snap.Tick).Msg("shutting down")
			return
		case <-ticker.C:
			snap.Tick++
			snap = rateEngine.UpdateBankRates(snap, rateEngine.PolicyRate(0.02, 0.0))
			snap, _ = orchestrator.ServiceDebt(snap)

			if ok, findings := verifier.VerifyLedgerIntegrity(snap, supply, currencies); !ok {
				log.Error().Int("findings", len(findings)).Int64("tick", snap.Tick).
					Msg("integrity check failed")
			}
			log.Info().Int64("tick", snap.Tick).
				Int64("m2", supply.ActualM2(money.DefaultCurrency)).
				Int64("system_debt", supply.SystemDebt()).
				Msg("tick complete")
		}
	}
}
