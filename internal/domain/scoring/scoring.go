// Package scoring computes the monthly performance score (0-100) of an
// account-servicing employee against one client.
//
// The score is the sum of five weighted components minus fixed-point
// penalties:
//
//	Traffic Impact          35
//	Rankings                20
//	Technical Health        20
//	Delivery vs Scope       15
//	Relationship & Quality  10
//
// Engine is a pure function over its inputs and is safe for concurrent use.
package scoring

import (
	"math"

	"github.com/okian/seoscore/internal/domain/model"
)

// Component maxima.
const (
	MaxScore        = 100
	maxTraffic      = 35
	maxRankings     = 20
	maxSERP         = 12
	maxGMB          = 8
	maxTechnical    = 20
	maxDelivery     = 15
	maxRelationship = 10
	maxNPS          = 6
	maxInteraction  = 2
	maxMentor       = 2

	defaultPenaltyPoints = 5
	minInteractions      = 4
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithNegativeGrowthPenalty overrides the points deducted for two
// consecutive months of negative organic growth.
func WithNegativeGrowthPenalty(points float64) Option {
	return func(e *Engine) {
		if points >= 0 {
			e.negativeGrowthPenalty = points
		}
	}
}

// WithMissingDeliverablesPenalty overrides the points deducted when no
// configured deliverable stream has any output.
func WithMissingDeliverablesPenalty(points float64) Option {
	return func(e *Engine) {
		if points >= 0 {
			e.missingDeliverablesPenalty = points
		}
	}
}

// Engine scores monthly entries against an injected configuration.
type Engine struct {
	cfg                        Config
	negativeGrowthPenalty      float64
	missingDeliverablesPenalty float64
}

// NewEngine creates an engine bound to cfg.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:                        cfg,
		negativeGrowthPenalty:      defaultPenaltyPoints,
		missingDeliverablesPenalty: defaultPenaltyPoints,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Result is the full outcome of scoring one entry.
type Result struct {
	TotalScore float64   `json:"total_score"`
	Breakdown  Breakdown `json:"breakdown"`
	Penalties  Penalties `json:"penalties"`
	MaxScore   float64   `json:"max_score"`
}

// Breakdown holds the five component results.
type Breakdown struct {
	TrafficImpact       TrafficImpact       `json:"traffic_impact"`
	Rankings            Rankings            `json:"rankings"`
	TechnicalHealth     TechnicalHealth     `json:"technical_health"`
	DeliveryScope       DeliveryScope       `json:"delivery_scope"`
	RelationshipQuality RelationshipQuality `json:"relationship_quality"`
}

// Sum adds the component points.
func (b Breakdown) Sum() float64 {
	return b.TrafficImpact.Points + b.Rankings.Points + b.TechnicalHealth.Points +
		b.DeliveryScope.Points + b.RelationshipQuality.Points
}

// CalculateMonthScore scores entry for client. prior holds up to two earlier
// entries of the same employee and client, most recent first. It never fails:
// missing metrics read as zero and every component is clamped to its maximum.
func (e *Engine) CalculateMonthScore(entry *model.MonthlyEntry, client model.Client, prior []model.MonthlyEntry) Result {
	b := Breakdown{
		TrafficImpact:       e.TrafficImpact(entry),
		Rankings:            e.Rankings(entry, client),
		TechnicalHealth:     e.TechnicalHealth(entry),
		DeliveryScope:       e.DeliveryScope(entry, client),
		RelationshipQuality: e.RelationshipQuality(entry),
	}
	penalties := e.CalculatePenalties(entry, client, prior)
	total := math.Max(0, b.Sum()-penalties.Total)
	total = math.Min(MaxScore, total)

	return Result{
		TotalScore: Round2(total),
		Breakdown:  b,
		Penalties:  penalties,
		MaxScore:   MaxScore,
	}
}

// Computed derives the persisted system fields from a result.
func Computed(entry *model.MonthlyEntry, r Result) model.Computed {
	return model.Computed{
		OrganicGrowthPct:     model.Float(Round2(organicGrowth(entry))),
		TrafficGrowthPct:     model.Float(Round2(trafficGrowth(entry))),
		TechnicalHealthScore: model.Float(Round2(r.Breakdown.TechnicalHealth.Points)),
		RankingScore:         model.Float(Round2(r.Breakdown.Rankings.Points)),
		DeliveryScore:        model.Float(Round2(r.Breakdown.DeliveryScope.Points)),
		RelationshipScore:    model.Float(Round2(r.Breakdown.RelationshipQuality.Points)),
		MonthScore:           model.Float(r.TotalScore),
	}
}

func organicGrowth(entry *model.MonthlyEntry) float64 {
	return GrowthPercentage(model.Num(entry.GSCOrganicPrev30d), model.Num(entry.GSCOrganicCurr30d))
}

func trafficGrowth(entry *model.MonthlyEntry) float64 {
	return GrowthPercentage(model.Num(entry.GATotalPrev30d), model.Num(entry.GATotalCurr30d))
}
