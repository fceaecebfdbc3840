package model

import "time"

// SystemFields names the seven computed columns callers may never write.
var SystemFields = []string{ //nolint:gochecknoglobals // fixed contract
	"organic_growth_pct",
	"traffic_growth_pct",
	"technical_health_score",
	"ranking_score",
	"delivery_score",
	"relationship_score",
	"month_score",
}

// EntryPatch is a generic field edit. Nil pointers leave the stored value
// untouched. The embedded Computed block exists only so that callers who
// send system fields can be detected; StripSystemFields clears it before
// anything is persisted.
type EntryPatch struct {
	GSCOrganicPrev30d *float64 `json:"gsc_organic_prev_30d"`
	GSCOrganicCurr30d *float64 `json:"gsc_organic_curr_30d"`
	GATotalPrev30d    *float64 `json:"ga_total_prev_30d"`
	GATotalCurr30d    *float64 `json:"ga_total_curr_30d"`

	SERPTop3Count  *float64 `json:"serp_top3_count" validate:"omitempty,min=0"`
	SERPTop10Count *float64 `json:"serp_top10_count" validate:"omitempty,min=0"`
	GMBTop3Count   *float64 `json:"gmb_top3_count" validate:"omitempty,min=0"`

	PageSpeedHome     *float64 `json:"pagespeed_home" validate:"omitempty,min=0,max=100"`
	PageSpeedService  *float64 `json:"pagespeed_service" validate:"omitempty,min=0,max=100"`
	PageSpeedLocation *float64 `json:"pagespeed_location" validate:"omitempty,min=0,max=100"`

	SCErrorsHome     *float64 `json:"sc_errors_home" validate:"omitempty,min=0"`
	SCErrorsService  *float64 `json:"sc_errors_service" validate:"omitempty,min=0"`
	SCErrorsLocation *float64 `json:"sc_errors_location" validate:"omitempty,min=0"`

	DeliverablesBlogs     *float64 `json:"deliverables_blogs" validate:"omitempty,min=0"`
	DeliverablesBacklinks *float64 `json:"deliverables_backlinks" validate:"omitempty,min=0"`
	DeliverablesOnPage    *float64 `json:"deliverables_onpage" validate:"omitempty,min=0"`
	DeliverablesTechFixes *float64 `json:"deliverables_techfixes" validate:"omitempty,min=0"`

	NPSClient         *float64   `json:"nps_client" validate:"omitempty,min=1,max=10"`
	InteractionsCount *float64   `json:"interactions_count" validate:"omitempty,min=0"`
	ClientMeetingDate *time.Time `json:"client_meeting_date"`

	Computed
}

// StripSystemFields clears any system-computed values from the patch and
// returns the names that were present.
func (p *EntryPatch) StripSystemFields() []string {
	c := p.Computed
	present := []*float64{
		c.OrganicGrowthPct, c.TrafficGrowthPct, c.TechnicalHealthScore,
		c.RankingScore, c.DeliveryScore, c.RelationshipScore, c.MonthScore,
	}
	var stripped []string
	for i, v := range present {
		if v != nil {
			stripped = append(stripped, SystemFields[i])
		}
	}
	p.Computed = Computed{}
	return stripped
}

// Apply copies every non-nil raw metric from p onto e. Computed, workflow
// and identity fields are never touched.
func (p *EntryPatch) Apply(e *MonthlyEntry) {
	set := func(dst **float64, src *float64) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	set(&e.GSCOrganicPrev30d, p.GSCOrganicPrev30d)
	set(&e.GSCOrganicCurr30d, p.GSCOrganicCurr30d)
	set(&e.GATotalPrev30d, p.GATotalPrev30d)
	set(&e.GATotalCurr30d, p.GATotalCurr30d)
	set(&e.SERPTop3Count, p.SERPTop3Count)
	set(&e.SERPTop10Count, p.SERPTop10Count)
	set(&e.GMBTop3Count, p.GMBTop3Count)
	set(&e.PageSpeedHome, p.PageSpeedHome)
	set(&e.PageSpeedService, p.PageSpeedService)
	set(&e.PageSpeedLocation, p.PageSpeedLocation)
	set(&e.SCErrorsHome, p.SCErrorsHome)
	set(&e.SCErrorsService, p.SCErrorsService)
	set(&e.SCErrorsLocation, p.SCErrorsLocation)
	set(&e.DeliverablesBlogs, p.DeliverablesBlogs)
	set(&e.DeliverablesBacklinks, p.DeliverablesBacklinks)
	set(&e.DeliverablesOnPage, p.DeliverablesOnPage)
	set(&e.DeliverablesTechFixes, p.DeliverablesTechFixes)
	set(&e.NPSClient, p.NPSClient)
	set(&e.InteractionsCount, p.InteractionsCount)
	if p.ClientMeetingDate != nil {
		t := *p.ClientMeetingDate
		e.ClientMeetingDate = &t
	}
}

// Metrics returns the raw metric fields of e as a patch.
func (e *MonthlyEntry) Metrics() EntryPatch {
	return EntryPatch{
		GSCOrganicPrev30d:     e.GSCOrganicPrev30d,
		GSCOrganicCurr30d:     e.GSCOrganicCurr30d,
		GATotalPrev30d:        e.GATotalPrev30d,
		GATotalCurr30d:        e.GATotalCurr30d,
		SERPTop3Count:         e.SERPTop3Count,
		SERPTop10Count:        e.SERPTop10Count,
		GMBTop3Count:          e.GMBTop3Count,
		PageSpeedHome:         e.PageSpeedHome,
		PageSpeedService:      e.PageSpeedService,
		PageSpeedLocation:     e.PageSpeedLocation,
		SCErrorsHome:          e.SCErrorsHome,
		SCErrorsService:       e.SCErrorsService,
		SCErrorsLocation:      e.SCErrorsLocation,
		DeliverablesBlogs:     e.DeliverablesBlogs,
		DeliverablesBacklinks: e.DeliverablesBacklinks,
		DeliverablesOnPage:    e.DeliverablesOnPage,
		DeliverablesTechFixes: e.DeliverablesTechFixes,
		NPSClient:             e.NPSClient,
		InteractionsCount:     e.InteractionsCount,
		ClientMeetingDate:     e.ClientMeetingDate,
	}
}
