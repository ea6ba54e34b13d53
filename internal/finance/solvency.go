package finance

import (
	"github.com/macrosim/fincore/pkg/messaging"
)

// FirmProfile is the balance-sheet snapshot solvency is judged on. All
// monetary figures are integer pennies.
type FirmProfile struct {
	FirmID          string
	FoundedTick     int64
	Cash            int64
	MonthlyWageBill int64
	WorkingCapital  int64
	RetainedEarn    int64
	EBIT            int64
	TotalAssets     int64
}

// AltmanZ computes the three-factor Z-score over the profile. Callers must
// guard TotalAssets > 0.
func (p FirmProfile) AltmanZ() float64 {
	ta := float64(p.TotalAssets)
	x1 := float64(p.WorkingCapital) / ta
	x2 := float64(p.RetainedEarn) / ta
	x3 := float64(p.EBIT) / ta
	return 1.2*x1 + 1.4*x2 + 3.3*x3
}

// EvaluateSolvency judges a firm at the given tick. Young firms inside the
// startup grace period are judged on runway alone: cash must cover three
// months of wages. Established firms are judged on the Altman Z-score
// against the distress threshold.
func (o *Orchestrator) EvaluateSolvency(p FirmProfile, tick int64) bool {
	age := tick - p.FoundedTick

	var solvent bool
	var z float64
	if age < o.cfg.StartupGraceTicks {
		solvent = p.Cash >= 3*p.MonthlyWageBill
	} else if p.TotalAssets <= 0 {
		solvent = false
	} else {
		z = p.AltmanZ()
		solvent = z > o.cfg.AltmanThreshold
	}

	if !solvent {
		o.log.Warn().Str("firm", p.FirmID).Int64("age", age).Float64("z_score", z).
			Int64("cash", p.Cash).Int64("tick", tick).Msg("firm judged insolvent")
		o.publish(messaging.SubjectSolvencyState, messaging.NewEvent(
			messaging.SubjectSolvencyState, tick, messaging.SolvencyEvent{
				AgentID: p.FirmID, From: "solvent", To: "insolvent", ZScore: z,
			}))
	}
	return solvent
}
