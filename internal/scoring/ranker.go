package scoring

import (
	"sort"

	"swing-advisor/internal/domain"
)

const uncitedHoldReason = "no supporting citations; directional call withheld"

// Rank orders signals by confidence descending, breaking ties by higher
// risk/reward ratio and then ascending symbol, so identical inputs always
// produce identical output. As a final gate it forces any signal without
// citations to HOLD, whatever action the drafter reported.
func Rank(signals []domain.Signal) []domain.Signal {
	ranked := make([]domain.Signal, len(signals))
	copy(ranked, signals)

	for i := range ranked {
		if len(ranked[i].Citations) == 0 && ranked[i].Action != domain.ActionHold {
			ranked[i].Action = domain.ActionHold
			if ranked[i].Reasoning == "" {
				ranked[i].Reasoning = uncitedHoldReason
			} else {
				ranked[i].Reasoning += " [" + uncitedHoldReason + "]"
			}
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		if ranked[i].RiskRewardRatio != ranked[j].RiskRewardRatio {
			return ranked[i].RiskRewardRatio > ranked[j].RiskRewardRatio
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	return ranked
}
