package agent

import (
	"sort"

	"github.com/tradion/volatility-signals/internal/metrics"
	"github.com/tradion/volatility-signals/internal/models"
)

// contractMultiplier is the share count per equity option contract
const contractMultiplier = 100

// ProposeCallCreditSpread builds a short call spread from the two lowest
// viable OTM strikes: sell the lower, buy the next one up. It returns nil when
// fewer than two strikes are viable or the spread would not collect a credit.
func ProposeCallCreditSpread(snapshot *models.OptionsSnapshot, currentPrice float64) *models.CallCreditSpread {
	viable := metrics.ViableCallStrikes(snapshot, currentPrice)
	if len(viable) < 2 {
		return nil
	}

	sort.SliceStable(viable, func(i, j int) bool { return viable[i].Strike < viable[j].Strike })

	sell := viable[0]
	var buy *models.StrikeQuote
	for i := 1; i < len(viable); i++ {
		if viable[i].Strike > sell.Strike {
			buy = &viable[i]
			break
		}
	}
	if buy == nil {
		return nil
	}

	width := buy.Strike - sell.Strike
	credit := sell.CallMid() - buy.CallMid()
	if credit <= 0 || credit >= width {
		return nil
	}

	return &models.CallCreditSpread{
		SellStrike:  sell.Strike,
		BuyStrike:   buy.Strike,
		Expiration:  snapshot.Expiration,
		Credit:      credit,
		MaxReward:   credit * contractMultiplier,
		MaxRisk:     (width - credit) * contractMultiplier,
		Probability: (1 - credit/width) * 100,
	}
}
