package model

import (
	"fmt"
	"regexp"
	"time"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`) //nolint:gochecknoglobals // compiled once

// ValidMonth reports whether m is a YYYY-MM month key.
func ValidMonth(m string) bool {
	return monthPattern.MatchString(m)
}

// MonthlyEntry is one employee x client x month performance record.
//
// Metric fields are optional pointers: nil means "not reported". Scoring
// treats nil as zero (see Num); submission requires the subset tagged
// `submit:"required"` to be present.
type MonthlyEntry struct {
	ID         string `json:"id" yaml:"id"`
	EmployeeID string `json:"employee_id" yaml:"employee_id" validate:"required"`
	ClientID   string `json:"client_id" yaml:"client_id" validate:"required"`
	Month      string `json:"month" yaml:"month" validate:"required,month"`

	GSCOrganicPrev30d *float64 `json:"gsc_organic_prev_30d" yaml:"gsc_organic_prev_30d" submit:"required"`
	GSCOrganicCurr30d *float64 `json:"gsc_organic_curr_30d" yaml:"gsc_organic_curr_30d" submit:"required"`
	GATotalPrev30d    *float64 `json:"ga_total_prev_30d" yaml:"ga_total_prev_30d" submit:"required"`
	GATotalCurr30d    *float64 `json:"ga_total_curr_30d" yaml:"ga_total_curr_30d" submit:"required"`

	SERPTop3Count  *float64 `json:"serp_top3_count" yaml:"serp_top3_count" submit:"required"`
	SERPTop10Count *float64 `json:"serp_top10_count" yaml:"serp_top10_count" submit:"required"`
	GMBTop3Count   *float64 `json:"gmb_top3_count" yaml:"gmb_top3_count"`

	PageSpeedHome     *float64 `json:"pagespeed_home" yaml:"pagespeed_home" submit:"required"`
	PageSpeedService  *float64 `json:"pagespeed_service" yaml:"pagespeed_service" submit:"required"`
	PageSpeedLocation *float64 `json:"pagespeed_location" yaml:"pagespeed_location" submit:"required"`

	SCErrorsHome     *float64 `json:"sc_errors_home" yaml:"sc_errors_home"`
	SCErrorsService  *float64 `json:"sc_errors_service" yaml:"sc_errors_service"`
	SCErrorsLocation *float64 `json:"sc_errors_location" yaml:"sc_errors_location"`

	DeliverablesBlogs     *float64 `json:"deliverables_blogs" yaml:"deliverables_blogs"`
	DeliverablesBacklinks *float64 `json:"deliverables_backlinks" yaml:"deliverables_backlinks"`
	DeliverablesOnPage    *float64 `json:"deliverables_onpage" yaml:"deliverables_onpage"`
	DeliverablesTechFixes *float64 `json:"deliverables_techfixes" yaml:"deliverables_techfixes"`

	NPSClient         *float64   `json:"nps_client" yaml:"nps_client"`
	InteractionsCount *float64   `json:"interactions_count" yaml:"interactions_count"`
	ClientMeetingDate *time.Time `json:"client_meeting_date" yaml:"client_meeting_date"`
	MentorScore       *float64   `json:"mentor_score" yaml:"mentor_score"`

	Computed `yaml:",inline"`

	Status        Status     `json:"status" yaml:"status"`
	ReviewComment string     `json:"review_comment" yaml:"review_comment"`
	ReviewedBy    string     `json:"reviewed_by" yaml:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at" yaml:"reviewed_at"`
	SubmittedAt   *time.Time `json:"submitted_at" yaml:"submitted_at"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Computed holds the system-computed fields. They are written only by a
// successful submission and are never accepted from callers.
type Computed struct {
	OrganicGrowthPct     *float64 `json:"organic_growth_pct" yaml:"organic_growth_pct"`
	TrafficGrowthPct     *float64 `json:"traffic_growth_pct" yaml:"traffic_growth_pct"`
	TechnicalHealthScore *float64 `json:"technical_health_score" yaml:"technical_health_score"`
	RankingScore         *float64 `json:"ranking_score" yaml:"ranking_score"`
	DeliveryScore        *float64 `json:"delivery_score" yaml:"delivery_score"`
	RelationshipScore    *float64 `json:"relationship_score" yaml:"relationship_score"`
	MonthScore           *float64 `json:"month_score" yaml:"month_score"`
}

// IsZero reports whether no computed field has been written.
func (c Computed) IsZero() bool {
	return c.OrganicGrowthPct == nil && c.TrafficGrowthPct == nil &&
		c.TechnicalHealthScore == nil && c.RankingScore == nil &&
		c.DeliveryScore == nil && c.RelationshipScore == nil && c.MonthScore == nil
}

// Num normalizes an optional metric: nil reads as zero. Every scorer goes
// through this so missing inputs never fail arithmetic.
func Num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Deliverable returns the achieved count for stream s.
func (e *MonthlyEntry) Deliverable(s Stream) *float64 {
	switch s {
	case StreamBlogs:
		return e.DeliverablesBlogs
	case StreamBacklinks:
		return e.DeliverablesBacklinks
	case StreamOnPage:
		return e.DeliverablesOnPage
	case StreamTechFixes:
		return e.DeliverablesTechFixes
	}
	return nil
}

// Key identifies the (employee, client, month) slot an entry occupies.
func (e *MonthlyEntry) Key() string {
	return fmt.Sprintf("%s/%s/%s", e.EmployeeID, e.ClientID, e.Month)
}

// Clone returns a deep copy of e; no pointer field is shared.
func (e MonthlyEntry) Clone() MonthlyEntry {
	out := e
	for _, p := range []**float64{
		&out.GSCOrganicPrev30d, &out.GSCOrganicCurr30d, &out.GATotalPrev30d, &out.GATotalCurr30d,
		&out.SERPTop3Count, &out.SERPTop10Count, &out.GMBTop3Count,
		&out.PageSpeedHome, &out.PageSpeedService, &out.PageSpeedLocation,
		&out.SCErrorsHome, &out.SCErrorsService, &out.SCErrorsLocation,
		&out.DeliverablesBlogs, &out.DeliverablesBacklinks, &out.DeliverablesOnPage, &out.DeliverablesTechFixes,
		&out.NPSClient, &out.InteractionsCount, &out.MentorScore,
		&out.OrganicGrowthPct, &out.TrafficGrowthPct, &out.TechnicalHealthScore, &out.RankingScore,
		&out.DeliveryScore, &out.RelationshipScore, &out.MonthScore,
	} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	for _, p := range []**time.Time{&out.ClientMeetingDate, &out.ReviewedAt, &out.SubmittedAt} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	return out
}
