package usecase

import "github.com/akraev/crypto_dca_bot/internal/config"

// LadderStep is one planned DCA buy: a resting price below the anchor and
// the fixed quote budget to spend there. Prices are raw; rounding to
// exchange precision happens at placement.
type LadderStep struct {
	Price     float64
	BudgetUSD float64
}

// BuildLadder computes the descending DCA buy ladder below an anchor.
// Step i rests at anchor*(1-i*step_pct/100). Planning stops before the
// step whose budget, on top of the current position cost and the steps
// already planned, would push past the per-symbol cap.
func BuildLadder(cfg config.SymbolConfig, anchor, positionUSD float64) []LadderStep {
	if anchor <= 0 {
		return nil
	}

	var steps []LadderStep
	planned := 0.0
	for i := 0; i < cfg.DCASteps; i++ {
		price := anchor * (1 - float64(i)*cfg.DCAStepPct/100)
		if price <= 0 {
			break
		}
		if positionUSD+planned+cfg.USDPerEntry > cfg.MaxPositionUSD {
			break
		}
		steps = append(steps, LadderStep{Price: price, BudgetUSD: cfg.USDPerEntry})
		planned += cfg.USDPerEntry
	}
	return steps
}

// TPTarget is one take-profit tier priced from the current cost basis.
type TPTarget struct {
	Tier   int
	Price  float64
	Amount float64
}

// BuildTakeProfits prices each configured tier at avgEntry*(1+offset)
// and allocates its fraction of the position. Dust filtering is left to
// the caller, after precision rounding.
func BuildTakeProfits(cfg config.SymbolConfig, avgEntry, totalBase float64) []TPTarget {
	if avgEntry <= 0 || totalBase <= 0 {
		return nil
	}

	targets := make([]TPTarget, 0, len(cfg.TakeProfits))
	for i, tp := range cfg.TakeProfits {
		targets = append(targets, TPTarget{
			Tier:   i + 1,
			Price:  avgEntry * (1 + tp),
			Amount: totalBase * cfg.TPAllocation[i],
		})
	}
	return targets
}
