package compliance

import (
	"github.com/shopspring/decimal"

	"github.com/practicehub/ledger/internal/domain"
)

// Severity weights. A window where every event is critical scores 0.
var weights = map[domain.Severity]int64{
	domain.SeverityInfo:     0,
	domain.SeverityWarning:  10,
	domain.SeverityCritical: 50,
}

const maxWeight = 50

func Weight(s domain.Severity) int64 {
	return weights[s]
}

// Score computes the 0-100 posture score from per-severity counts. It
// returns the score with the weighted penalty and the maximum possible
// penalty. Unknown severities count as events with weight 0.
func Score(bySeverity map[domain.Severity]int) (score int, weighted, maxPenalty int64) {
	var total int64
	for sev, n := range bySeverity {
		if n <= 0 {
			continue
		}
		total += int64(n)
		weighted += int64(n) * Weight(sev)
	}
	if total == 0 {
		return 100, 0, 0
	}
	maxPenalty = total * maxWeight

	penalty := decimal.NewFromInt(weighted).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(maxPenalty))
	s := decimal.NewFromInt(100).Sub(penalty).Round(0).IntPart()
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return int(s), weighted, maxPenalty
}
