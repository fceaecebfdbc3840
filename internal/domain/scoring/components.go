package scoring

import (
	"github.com/okian/seoscore/internal/domain/model"
)

// GrowthDetail is a growth percentage and the points it earned.
type GrowthDetail struct {
	Percentage float64 `json:"percentage"`
	Points     float64 `json:"points"`
}

// TrafficImpact is component A (max 35).
type TrafficImpact struct {
	Points        float64      `json:"points"`
	MaxPoints     float64      `json:"max_points"`
	OrganicGrowth GrowthDetail `json:"organic_growth"`
	TrafficGrowth GrowthDetail `json:"traffic_growth"`
}

// TrafficImpact buckets organic (0-20) and total (0-15) traffic growth.
func (e *Engine) TrafficImpact(entry *model.MonthlyEntry) TrafficImpact {
	organic := organicGrowth(entry)
	traffic := trafficGrowth(entry)
	organicPts := BucketByThreshold(organic, organicGrowthTable)
	trafficPts := BucketByThreshold(traffic, trafficGrowthTable)

	return TrafficImpact{
		Points:        clamp(0, maxTraffic, organicPts+trafficPts),
		MaxPoints:     maxTraffic,
		OrganicGrowth: GrowthDetail{Percentage: organic, Points: organicPts},
		TrafficGrowth: GrowthDetail{Percentage: traffic, Points: trafficPts},
	}
}

// Rankings is component B (max 20).
type Rankings struct {
	Points     float64 `json:"points"`
	MaxPoints  float64 `json:"max_points"`
	SERPPoints float64 `json:"serp_points"`
	GMBPoints  float64 `json:"gmb_points"`
	SERPTarget float64 `json:"serp_target"`
	GMBTarget  float64 `json:"gmb_target"`
}

// Rankings weighs SERP placements (top-3 at 1.5, top-10 at 0.5) against the
// tier's SERP target (0-12) and Google Business top-3 against its target (0-8).
// A tier with no positive target earns nothing for that part.
func (e *Engine) Rankings(entry *model.MonthlyEntry, client model.Client) Rankings {
	target := e.cfg.RankingTargets[client.Type]

	var serp, gmb float64
	if target.SERPTarget > 0 {
		weighted := model.Num(entry.SERPTop3Count)*1.5 + model.Num(entry.SERPTop10Count)*0.5
		serp = clamp(0, maxSERP, weighted/target.SERPTarget*maxSERP)
	}
	if target.GMBTarget > 0 {
		gmb = clamp(0, maxGMB, model.Num(entry.GMBTop3Count)/target.GMBTarget*maxGMB)
	}

	return Rankings{
		Points:     serp + gmb,
		MaxPoints:  maxRankings,
		SERPPoints: serp,
		GMBPoints:  gmb,
		SERPTarget: target.SERPTarget,
		GMBTarget:  target.GMBTarget,
	}
}

// TechnicalHealth is component C (max 20).
type TechnicalHealth struct {
	Points          float64 `json:"points"`
	MaxPoints       float64 `json:"max_points"`
	AvgPageSpeed    float64 `json:"avg_pagespeed"`
	PageSpeedPoints float64 `json:"pagespeed_points"`
	TotalErrors     float64 `json:"total_errors"`
	ErrorPoints     float64 `json:"error_points"`
}

// TechnicalHealth scores mean PageSpeed (0-10) and the Search Console error
// total (0-10).
func (e *Engine) TechnicalHealth(entry *model.MonthlyEntry) TechnicalHealth {
	avg := (model.Num(entry.PageSpeedHome) + model.Num(entry.PageSpeedService) + model.Num(entry.PageSpeedLocation)) / 3
	errs := model.Num(entry.SCErrorsHome) + model.Num(entry.SCErrorsService) + model.Num(entry.SCErrorsLocation)
	speedPts := BucketByThreshold(avg, pageSpeedTable)
	errPts := BucketByThreshold(-errs, errorCountTable)

	return TechnicalHealth{
		Points:          clamp(0, maxTechnical, speedPts+errPts),
		MaxPoints:       maxTechnical,
		AvgPageSpeed:    avg,
		PageSpeedPoints: speedPts,
		TotalErrors:     errs,
		ErrorPoints:     errPts,
	}
}

// StreamDetail is the delivery outcome of one stream.
type StreamDetail struct {
	Stream     model.Stream `json:"stream"`
	Achieved   float64      `json:"achieved"`
	Target     float64      `json:"target"`
	Percentage float64      `json:"percentage"`
	Points     float64      `json:"points"`
}

// DeliveryScope is component D (max 15).
type DeliveryScope struct {
	Points    float64        `json:"points"`
	MaxPoints float64        `json:"max_points"`
	Streams   []StreamDetail `json:"streams"`
}

// DeliveryScope splits 15 points equally across the streams configured for
// the client's tier and pays each share at 100%, 75%, 50% or nothing
// depending on how much of the target was achieved.
func (e *Engine) DeliveryScope(entry *model.MonthlyEntry, client model.Client) DeliveryScope {
	targets := e.cfg.DeliveryTargets[client.Type]
	streams := configuredStreams(targets)
	out := DeliveryScope{MaxPoints: maxDelivery, Streams: make([]StreamDetail, 0, len(streams))}
	if len(streams) == 0 {
		return out
	}

	share := float64(maxDelivery) / float64(len(streams))
	var total float64
	for _, s := range streams {
		achieved := model.Num(entry.Deliverable(s))
		target := targets[s]
		pct := 100.0
		if target > 0 {
			pct = achieved / target * 100
		}
		pts := share * deliveryMultiplier(pct)
		total += pts
		out.Streams = append(out.Streams, StreamDetail{
			Stream:     s,
			Achieved:   achieved,
			Target:     target,
			Percentage: Round2(pct),
			Points:     Round2(pts),
		})
	}
	out.Points = Round2(clamp(0, maxDelivery, total))
	return out
}

func deliveryMultiplier(pct float64) float64 {
	switch {
	case pct >= 100:
		return 1
	case pct >= 75:
		return 0.75
	case pct >= 50:
		return 0.5
	default:
		return 0
	}
}

// configuredStreams returns the known streams present in targets, in the
// canonical stream order.
func configuredStreams(targets map[model.Stream]float64) []model.Stream {
	var out []model.Stream
	for _, s := range model.Streams() {
		if _, ok := targets[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// RelationshipQuality is component E (max 10).
type RelationshipQuality struct {
	Points            float64 `json:"points"`
	MaxPoints         float64 `json:"max_points"`
	NPSPoints         float64 `json:"nps_points"`
	InteractionPoints float64 `json:"interaction_points"`
	MentorPoints      float64 `json:"mentor_points"`
	HasMeeting        bool    `json:"has_meeting"`
}

// RelationshipQuality converts client NPS (0-6), meeting and interaction
// hygiene (0-2) and the mentor's rating (0-2) into points.
func (e *Engine) RelationshipQuality(entry *model.MonthlyEntry) RelationshipQuality {
	var nps, mentor float64
	if entry.NPSClient != nil {
		nps = clamp(0, maxNPS, *entry.NPSClient/10*maxNPS)
	}
	if entry.MentorScore != nil {
		mentor = clamp(0, maxMentor, *entry.MentorScore/10*maxMentor)
	}

	hasMeeting := entry.ClientMeetingDate != nil
	enoughInteractions := model.Num(entry.InteractionsCount) >= minInteractions
	var interaction float64
	switch {
	case hasMeeting && enoughInteractions:
		interaction = maxInteraction
	case hasMeeting || enoughInteractions:
		interaction = 1.5
	}

	return RelationshipQuality{
		Points:            clamp(0, maxRelationship, nps+interaction+mentor),
		MaxPoints:         maxRelationship,
		NPSPoints:         nps,
		InteractionPoints: interaction,
		MentorPoints:      mentor,
		HasMeeting:        hasMeeting,
	}
}
