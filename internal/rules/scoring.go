package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"crm/models"
)

// Веса оценки отношений. Пороговые значения фиксированы и не настраиваются.
var (
	priorityWeight = map[models.Priority]float64{
		models.PriorityA: 40,
		models.PriorityB: 30,
		models.PriorityC: 20,
		models.PriorityD: 10,
	}
	typeWeight = map[models.OrganizationType]float64{
		models.OrganizationCustomer:    30,
		models.OrganizationPrincipal:   25,
		models.OrganizationDistributor: 25,
		models.OrganizationProspect:    15,
		models.OrganizationSupplier:    10,
		models.OrganizationVendor:      5,
	}
)

const (
	contactPoints     = 4
	contactCap        = 20
	opportunityPoints = 5
	opportunityCap    = 20
	interactionCap    = 15
	valueBonusFactor  = 5
	valueBonusCap     = 25

	unsegmented = "Unsegmented"
)

// Tier - уровень отношений по итоговой оценке
type Tier string

const (
	TierStrategic   Tier = "strategic"
	TierCore        Tier = "core"
	TierDeveloping  Tier = "developing"
	TierMaintenance Tier = "maintenance"
)

// RelationshipInput - данные об активности организации для оценки
type RelationshipInput struct {
	Organization          models.Organization
	ContactCount          int
	OpportunityCount      int
	InteractionCount      int
	TotalOpportunityValue float64
	LastInteractionAt     *time.Time
	Now                   time.Time
}

// CalculateRelationshipScore складывает взвешенные составляющие и вычитает
// штраф за давность последнего контакта. Результат не меньше нуля.
func CalculateRelationshipScore(in RelationshipInput) int {
	score := priorityWeight[in.Organization.Priority] + typeWeight[in.Organization.Type]
	score += capped(float64(in.ContactCount)*contactPoints, contactCap)
	score += capped(float64(in.OpportunityCount)*opportunityPoints, opportunityCap)
	score += capped(float64(in.InteractionCount), interactionCap)
	score += valueBonus(in.TotalOpportunityValue)
	score -= recencyPenalty(in.LastInteractionAt, in.Now)
	return int(math.Round(math.Max(0, score)))
}

// RelationshipTier переводит оценку в уровень
func RelationshipTier(score int) Tier {
	switch {
	case score >= 100:
		return TierStrategic
	case score >= 75:
		return TierCore
	case score >= 50:
		return TierDeveloping
	default:
		return TierMaintenance
	}
}

// логарифмический бонус: 100k и выше дают максимум
func valueBonus(total float64) float64 {
	if total <= 0 || math.IsNaN(total) {
		return 0
	}
	return math.Min(valueBonusCap, valueBonusFactor*math.Log10(total+1))
}

func recencyPenalty(last *time.Time, now time.Time) float64 {
	days, ok := daysSince(last, now)
	if !ok {
		return 0
	}
	switch {
	case days > 180:
		return 30
	case days > 90:
		return 20
	case days > 30:
		return 10
	}
	return 0
}

func daysSince(last *time.Time, now time.Time) (int, bool) {
	if last == nil || last.IsZero() || now.IsZero() {
		return 0, false
	}
	d := int(now.Sub(*last).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d, true
}

func capped(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Min(v, limit)
}

// ScoredOrganization - организация с уже посчитанной оценкой отношений
type ScoredOrganization struct {
	Organization models.Organization
	Score        int
}

// SegmentSummary - сводка по одному сегменту
type SegmentSummary struct {
	Segment          string                          `json:"segment"`
	Count            int                             `json:"count"`
	AverageScore     float64                         `json:"averageScore"`
	ByPriority       map[models.Priority]int         `json:"byPriority"`
	ByType           map[models.OrganizationType]int `json:"byType"`
	ByTier           map[Tier]int                    `json:"byTier"`
	PrincipalCount   int                             `json:"principalCount"`
	DistributorCount int                             `json:"distributorCount"`
	Recommendations  []string                        `json:"recommendations"`
}

type SegmentationAnalysis struct {
	TotalOrganizations int              `json:"totalOrganizations"`
	Segments           []SegmentSummary `json:"segments"`
}

// AnalyzeSegmentation группирует организации по сегментам. Сегменты
// отсортированы по убыванию размера, затем по имени.
func AnalyzeSegmentation(orgs []ScoredOrganization, keySegments []string) SegmentationAnalysis {
	if keySegments == nil {
		keySegments = DefaultKeySegments
	}
	bySegment := make(map[string]*SegmentSummary)
	totals := make(map[string]int)
	for _, so := range orgs {
		name := strings.TrimSpace(so.Organization.Segment)
		if name == "" {
			name = unsegmented
		}
		s, ok := bySegment[name]
		if !ok {
			s = &SegmentSummary{
				Segment:    name,
				ByPriority: make(map[models.Priority]int),
				ByType:     make(map[models.OrganizationType]int),
				ByTier:     make(map[Tier]int),
			}
			bySegment[name] = s
		}
		s.Count++
		s.ByPriority[so.Organization.Priority]++
		s.ByType[so.Organization.Type]++
		s.ByTier[RelationshipTier(so.Score)]++
		if so.Organization.IsPrincipal || so.Organization.Type == models.OrganizationPrincipal {
			s.PrincipalCount++
		}
		if so.Organization.IsDistributor || so.Organization.Type == models.OrganizationDistributor {
			s.DistributorCount++
		}
		totals[name] += so.Score
	}

	out := SegmentationAnalysis{TotalOrganizations: len(orgs), Segments: make([]SegmentSummary, 0, len(bySegment))}
	for name, s := range bySegment {
		s.AverageScore = math.Round(float64(totals[name])/float64(s.Count)*100) / 100
		s.Recommendations = segmentRecommendations(*s, isKeySegment(name, keySegments))
		out.Segments = append(out.Segments, *s)
	}
	sort.Slice(out.Segments, func(i, j int) bool {
		if out.Segments[i].Count != out.Segments[j].Count {
			return out.Segments[i].Count > out.Segments[j].Count
		}
		return out.Segments[i].Segment < out.Segments[j].Segment
	})
	return out
}

func segmentRecommendations(s SegmentSummary, key bool) []string {
	recs := []string{}
	low := s.ByPriority[models.PriorityC] + s.ByPriority[models.PriorityD]
	if float64(low)/float64(s.Count) > 0.5 {
		recs = append(recs, fmt.Sprintf("More than half of %s organizations are priority C/D; review targeting", s.Segment))
	}
	if s.PrincipalCount == 0 && s.DistributorCount == 0 {
		recs = append(recs, fmt.Sprintf("No principal or distributor coverage in %s", s.Segment))
	}
	if key && s.ByPriority[models.PriorityA] == 0 {
		recs = append(recs, fmt.Sprintf("Key segment %s has no priority A accounts", s.Segment))
	}
	return recs
}

// Health - состояние работы с организацией
type Health string

const (
	HealthHealthy Health = "healthy"
	HealthAtRisk  Health = "at-risk"
	HealthDormant Health = "dormant"
)

// PerformanceInput - сделки организации и счетчики активности
type PerformanceInput struct {
	Opportunities     []models.Opportunity
	ContactCount      int
	InteractionCount  int
	LastInteractionAt *time.Time
	Now               time.Time
}

type PerformanceMetrics struct {
	TotalOpportunities  int     `json:"totalOpportunities"`
	ActiveOpportunities int     `json:"activeOpportunities"`
	WonOpportunities    int     `json:"wonOpportunities"`
	LostOpportunities   int     `json:"lostOpportunities"`
	PipelineValue       float64 `json:"pipelineValue"`
	WonValue            float64 `json:"wonValue"`
	LostValue           float64 `json:"lostValue"`
	WinRate             float64 `json:"winRate"`
	AverageDealSize     float64 `json:"averageDealSize"`
	WeightedPipeline    float64 `json:"weightedPipeline"`
	EngagementScore     int     `json:"engagementScore"`
	Health              Health  `json:"health"`
}

// CalculatePerformanceMetrics считает показатели работы с одной организацией
func CalculatePerformanceMetrics(in PerformanceInput) PerformanceMetrics {
	m := PerformanceMetrics{TotalOpportunities: len(in.Opportunities)}
	for _, o := range in.Opportunities {
		switch {
		case IsWonStage(o.Stage):
			m.WonOpportunities++
			m.WonValue += o.EstimatedValue
		case IsLostStage(o.Stage):
			m.LostOpportunities++
			m.LostValue += o.EstimatedValue
		default:
			m.ActiveOpportunities++
			m.PipelineValue += o.EstimatedValue
		}
	}
	m.WinRate = CalculateWinRate(in.Opportunities)
	m.AverageDealSize = CalculateAverageDealSize(in.Opportunities)
	m.WeightedPipeline = CalculateWeightedPipeline(in.Opportunities)

	engagement := capped(float64(in.InteractionCount)*2, 40) +
		capped(float64(in.ContactCount)*5, 20) +
		capped(float64(m.ActiveOpportunities)*5, 20)
	if days, ok := daysSince(in.LastInteractionAt, in.Now); ok {
		switch {
		case days <= 30:
			engagement += 20
		case days <= 90:
			engagement += 10
		case days <= 180:
			engagement += 5
		}
	}
	m.EngagementScore = int(math.Round(engagement))
	switch {
	case m.EngagementScore >= 60:
		m.Health = HealthHealthy
	case m.EngagementScore >= 30:
		m.Health = HealthAtRisk
	default:
		m.Health = HealthDormant
	}
	return m
}
