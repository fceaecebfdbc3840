package scoring

import (
	"github.com/okian/seoscore/internal/domain/model"
)

// PenaltyType names a guardrail deduction.
type PenaltyType string

// Guardrail deductions.
const (
	PenaltyConsecutiveNegativeGrowth   PenaltyType = "consecutive_negative_growth"
	PenaltyMissingMandatoryDeliverable PenaltyType = "missing_mandatory_deliverables"
)

// Penalty is one applied deduction.
type Penalty struct {
	Type   PenaltyType `json:"type"`
	Points float64     `json:"points"`
}

// Penalties lists every applied deduction and their sum.
type Penalties struct {
	Items []Penalty `json:"items"`
	Total float64   `json:"total"`
}

func (p *Penalties) add(t PenaltyType, points float64) {
	p.Items = append(p.Items, Penalty{Type: t, Points: points})
	p.Total += points
}

// Has reports whether a penalty of type t was applied.
func (p Penalties) Has(t PenaltyType) bool {
	for _, it := range p.Items {
		if it.Type == t {
			return true
		}
	}
	return false
}

// CalculatePenalties evaluates the guardrails for entry. prior is ordered
// most recent first; only the immediately preceding month is consulted.
func (e *Engine) CalculatePenalties(entry *model.MonthlyEntry, client model.Client, prior []model.MonthlyEntry) Penalties {
	out := Penalties{Items: []Penalty{}}

	if len(prior) > 0 {
		last := &prior[0]
		if organicGrowth(entry) < 0 && organicGrowth(last) < 0 {
			out.add(PenaltyConsecutiveNegativeGrowth, e.negativeGrowthPenalty)
		}
	}

	// Any single stream with output clears this guardrail, even when the
	// others are at zero.
	delivered := false
	for _, s := range configuredStreams(e.cfg.DeliveryTargets[client.Type]) {
		if model.Num(entry.Deliverable(s)) > 0 {
			delivered = true
			break
		}
	}
	if !delivered {
		out.add(PenaltyMissingMandatoryDeliverable, e.missingDeliverablesPenalty)
	}

	return out
}
