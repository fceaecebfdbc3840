// Package appraisal aggregates approved monthly scores across clients and
// months: the weighted employee month score, the appraisal band for a
// period, the employee summary and the team summary.
package appraisal

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/internal/domain/scoring"
)

const (
	defaultLowPerformerThreshold = 65
	defaultWeight                = 1
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithClock overrides the time source that decides the current month.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLowPerformerThreshold sets the month score below which an approved
// entry counts as a low performer.
func WithLowPerformerThreshold(threshold float64) Option {
	return func(c *Calculator) {
		if threshold > 0 {
			c.lowPerformer = threshold
		}
	}
}

// Calculator is a pure aggregator over entry snapshots.
type Calculator struct {
	weights      map[model.ClientType]float64
	bands        []namedBand
	now          func() time.Time
	lowPerformer float64
}

type namedBand struct {
	name string
	scoring.Band
}

// NewCalculator builds a calculator from the client weights and appraisal
// bands in cfg.
func NewCalculator(cfg scoring.Config, opts ...Option) *Calculator {
	c := &Calculator{
		weights:      cfg.ClientWeights,
		now:          time.Now,
		lowPerformer: defaultLowPerformerThreshold,
	}
	for name, b := range cfg.AppraisalBands {
		c.bands = append(c.bands, namedBand{name: name, Band: b})
	}
	// highest threshold first; ties broken by name
	sort.Slice(c.bands, func(i, j int) bool {
		if c.bands[i].MinScore != c.bands[j].MinScore {
			return c.bands[i].MinScore > c.bands[j].MinScore
		}
		return c.bands[i].name < c.bands[j].name
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Weight returns the aggregation weight of a client tier. Unknown tiers
// weigh 1.
func (c *Calculator) Weight(t model.ClientType) float64 {
	if w, ok := c.weights[t]; ok && w > 0 {
		return w
	}
	return defaultWeight
}

// EmployeeMonthScore returns the client-weighted mean month score of the
// approved entries in entries, or nil when there are none. types maps a
// client id to its tier.
func (c *Calculator) EmployeeMonthScore(entries []model.MonthlyEntry, types map[string]model.ClientType) *float64 {
	var sum, total float64
	for i := range entries {
		e := &entries[i]
		if e.Status != model.StatusApproved || e.MonthScore == nil {
			continue
		}
		w := c.Weight(types[e.ClientID])
		sum += *e.MonthScore * w
		total += w
	}
	if total == 0 {
		return nil
	}
	return model.Float(scoring.Round2(sum / total))
}

// Appraisal is the rating for one employee over a period of months.
type Appraisal struct {
	AvgScore     float64 `json:"avg_score"`
	RatingBand   string  `json:"rating_band"`
	IncrementPct float64 `json:"increment_pct"`
	EntryCount   int     `json:"entry_count"`
}

// Appraise averages the approved month scores in entries and picks the
// highest band whose minimum the average reaches. It returns nil when no
// approved entry is present.
func (c *Calculator) Appraise(entries []model.MonthlyEntry) *Appraisal {
	var sum float64
	n := 0
	for i := range entries {
		e := &entries[i]
		if e.Status != model.StatusApproved || e.MonthScore == nil {
			continue
		}
		sum += *e.MonthScore
		n++
	}
	if n == 0 {
		return nil
	}

	avg := sum / float64(n)
	band, increment := c.Band(avg)
	return &Appraisal{
		AvgScore:     scoring.Round2(avg),
		RatingBand:   band,
		IncrementPct: increment,
		EntryCount:   n,
	}
}

// Band returns the name and increment of the highest band whose minimum
// is at most avg. Below every band the lowest band is returned with no
// increment.
func (c *Calculator) Band(avg float64) (string, float64) {
	if len(c.bands) == 0 {
		return "", 0
	}
	for _, b := range c.bands {
		if avg >= b.MinScore {
			return b.name, b.IncrementPct
		}
	}
	return c.bands[len(c.bands)-1].name, 0
}

// TeamMetrics summarizes a set of entries.
type TeamMetrics struct {
	TotalEntries            int     `json:"total_entries"`
	ApprovedEntries         int     `json:"approved_entries"`
	PendingReview           int     `json:"pending_review"`
	AvgTeamScore            float64 `json:"avg_team_score"`
	LowPerformersCount      int     `json:"low_performers_count"`
	CurrentMonthSubmissions int     `json:"current_month_submissions"`
}

// TeamMetrics counts entries by state. The average and low performer count
// consider approved entries only.
func (c *Calculator) TeamMetrics(entries []model.MonthlyEntry) TeamMetrics {
	current := c.now().UTC().Format("2006-01")
	m := TeamMetrics{TotalEntries: len(entries)}
	var sum float64
	for i := range entries {
		e := &entries[i]
		if e.Month == current {
			m.CurrentMonthSubmissions++
		}
		switch e.Status {
		case model.StatusSubmitted:
			m.PendingReview++
		case model.StatusApproved:
			m.ApprovedEntries++
			score := model.Num(e.MonthScore)
			sum += score
			if score < c.lowPerformer {
				m.LowPerformersCount++
			}
		}
	}
	if m.ApprovedEntries > 0 {
		m.AvgTeamScore = scoring.Round2(sum / float64(m.ApprovedEntries))
	}
	return m
}

const npsWindow = 90 * 24 * time.Hour

// EmployeeSummary is one employee's standing relative to the current date.
type EmployeeSummary struct {
	YTDAvgScore        float64 `json:"ytd_avg_score"`
	LastMonthScore     float64 `json:"last_month_score"`
	ActiveClientsCount int     `json:"active_clients_count"`
	AvgNPS90d          float64 `json:"avg_nps_90d"`
}

// EmployeeSummary averages one employee's approved month scores for the
// current year and for the previous month, and the client NPS of entries
// created in the last 90 days whatever their status. active lists the
// clients that still count as active; each is counted once.
func (c *Calculator) EmployeeSummary(entries []model.MonthlyEntry, active map[string]bool) EmployeeSummary {
	now := c.now().UTC()
	year := now.Format("2006-")
	lastMonth := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	since := now.Add(-npsWindow)

	var ytd, last, nps mean
	clients := make(map[string]struct{})
	for i := range entries {
		e := &entries[i]
		if active[e.ClientID] {
			clients[e.ClientID] = struct{}{}
		}
		if e.NPSClient != nil && !e.CreatedAt.Before(since) {
			nps.add(*e.NPSClient)
		}
		if e.Status != model.StatusApproved || e.MonthScore == nil {
			continue
		}
		if strings.HasPrefix(e.Month, year) {
			ytd.add(*e.MonthScore)
		}
		if e.Month == lastMonth {
			last.add(*e.MonthScore)
		}
	}
	return EmployeeSummary{
		YTDAvgScore:        ytd.value(),
		LastMonthScore:     last.value(),
		ActiveClientsCount: len(clients),
		AvgNPS90d:          nps.value(),
	}
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

// value is the rounded mean, or 0 when nothing was added.
func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return scoring.Round2(m.sum / float64(m.n))
}
