package scoring

import (
	"fmt"

	"github.com/okian/seoscore/internal/domain/model"
)

// RankingTarget holds the SERP and Google Business targets for a client tier.
type RankingTarget struct {
	SERPTarget float64 `koanf:"serp_target" json:"serp_target" yaml:"serp_target"`
	GMBTarget  float64 `koanf:"gmb_target" json:"gmb_target" yaml:"gmb_target"`
}

// Band is an appraisal rating band.
type Band struct {
	MinScore     float64 `koanf:"min_score" json:"min_score" yaml:"min_score"`
	IncrementPct float64 `koanf:"increment_pct" json:"increment_pct" yaml:"increment_pct"`
}

// Config is the read-only scoring configuration. It is loaded once and
// passed explicitly to every consumer.
type Config struct {
	RankingTargets  map[model.ClientType]RankingTarget            `koanf:"ranking_targets" json:"ranking_targets" yaml:"ranking_targets"`
	DeliveryTargets map[model.ClientType]map[model.Stream]float64 `koanf:"delivery_targets" json:"delivery_targets" yaml:"delivery_targets"`
	ClientWeights   map[model.ClientType]float64                  `koanf:"client_weights" json:"client_weights" yaml:"client_weights"`
	AppraisalBands  map[string]Band                               `koanf:"appraisal_bands" json:"appraisal_bands" yaml:"appraisal_bands"`
}

// DefaultConfig returns the product's standard target tables.
func DefaultConfig() Config {
	return Config{
		RankingTargets: map[model.ClientType]RankingTarget{
			model.ClientPremium:  {SERPTarget: 20, GMBTarget: 10},
			model.ClientStandard: {SERPTarget: 10, GMBTarget: 5},
		},
		DeliveryTargets: map[model.ClientType]map[model.Stream]float64{
			model.ClientPremium: {
				model.StreamBlogs:     8,
				model.StreamBacklinks: 40,
				model.StreamOnPage:    10,
				model.StreamTechFixes: 6,
			},
			model.ClientStandard: {
				model.StreamBlogs:     4,
				model.StreamBacklinks: 20,
				model.StreamOnPage:    5,
				model.StreamTechFixes: 3,
			},
		},
		ClientWeights: map[model.ClientType]float64{
			model.ClientPremium:  1.5,
			model.ClientStandard: 1.0,
		},
		AppraisalBands: map[string]Band{
			"A": {MinScore: 85, IncrementPct: 15},
			"B": {MinScore: 75, IncrementPct: 10},
			"C": {MinScore: 65, IncrementPct: 5},
			"D": {MinScore: 0, IncrementPct: 0},
		},
	}
}

// Validate checks that every table is usable by the engine.
func (c Config) Validate() error {
	for ct, rt := range c.RankingTargets {
		if !ct.Valid() {
			return fmt.Errorf("%w: unknown client type %q in ranking_targets", ErrInvalidConfig, ct)
		}
		if rt.SERPTarget <= 0 || rt.GMBTarget <= 0 {
			return fmt.Errorf("%w: ranking targets for %s must be positive", ErrInvalidConfig, ct)
		}
	}
	for ct, streams := range c.DeliveryTargets {
		if _, ok := c.RankingTargets[ct]; !ok {
			return fmt.Errorf("%w: client type %s has delivery targets but no ranking targets", ErrInvalidConfig, ct)
		}
		if len(streams) > len(model.Streams()) {
			return fmt.Errorf("%w: %s configures more than %d streams", ErrInvalidConfig, ct, len(model.Streams()))
		}
		for s, target := range streams {
			if !s.Valid() {
				return fmt.Errorf("%w: unknown stream %q for %s", ErrInvalidConfig, s, ct)
			}
			if target <= 0 {
				return fmt.Errorf("%w: delivery target %s/%s must be positive", ErrInvalidConfig, ct, s)
			}
		}
	}
	for ct, w := range c.ClientWeights {
		if w <= 0 {
			return fmt.Errorf("%w: client weight for %s must be positive", ErrInvalidConfig, ct)
		}
	}
	return nil
}
