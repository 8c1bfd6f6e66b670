// Package rules содержит чистые функции бизнес-правил для сделок и организаций.
// Функции не обращаются к хранилищу: получают и возвращают обычные значения.
package rules

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"crm/internal/domain"
	"crm/models"
)

const (
	MaxOpportunityNameLength = 255

	RegressionReason = "Stage regression allowed for process correction"
)

// Допустимые переходы вперед на один шаг. Закрыть как Lost можно с любого
// активного этапа, как Won - только после Feedback Logged или Demo Scheduled.
var stageTransitions = map[models.Stage][]models.Stage{
	models.StageNewLead:            {models.StageInitialOutreach, models.StageClosedLost},
	models.StageInitialOutreach:    {models.StageSampleVisitOffered, models.StageClosedLost},
	models.StageSampleVisitOffered: {models.StageAwaitingResponse, models.StageClosedLost},
	models.StageAwaitingResponse:   {models.StageFeedbackLogged, models.StageClosedLost},
	models.StageFeedbackLogged:     {models.StageDemoScheduled, models.StageClosedWon, models.StageClosedLost},
	models.StageDemoScheduled:      {models.StageClosedWon, models.StageClosedLost},
	models.StageClosedWon:          {},
	models.StageClosedLost:         {},
}

// Вероятность выигрыша по этапу, используется для взвешенного прогноза
var stageProbability = map[models.Stage]float64{
	models.StageNewLead:            0.10,
	models.StageInitialOutreach:    0.20,
	models.StageSampleVisitOffered: 0.30,
	models.StageAwaitingResponse:   0.40,
	models.StageFeedbackLogged:     0.50,
	models.StageDemoScheduled:      0.70,
	models.StageClosedWon:          1,
	models.StageClosedLost:         0,
}

// TransitionResult - итог проверки перехода между этапами
type TransitionResult struct {
	IsValid        bool          `json:"isValid"`
	Reason         string        `json:"reason,omitempty"`
	SuggestedStage *models.Stage `json:"suggestedStage,omitempty"`
}

// NextStages возвращает этапы, достижимые из stage за один шаг вперед
func NextStages(stage models.Stage) []models.Stage {
	next := stageTransitions[stage]
	out := make([]models.Stage, len(next))
	copy(out, next)
	return out
}

// StageIndex - позиция этапа в каноническом порядке, -1 для неизвестного
func StageIndex(stage models.Stage) int {
	for i, s := range models.Stages() {
		if s == stage {
			return i
		}
	}
	return -1
}

// ValidateStageTransition проверяет переход current -> next.
// Откат назад разрешен с любого незакрытого этапа, пропуск этапов вперед - нет.
func ValidateStageTransition(current, next models.Stage) TransitionResult {
	if !current.Valid() || !next.Valid() {
		return TransitionResult{Reason: fmt.Sprintf("Unknown stage in transition from %s to %s", current, next)}
	}
	if current == next {
		return TransitionResult{IsValid: true}
	}
	allowed := stageTransitions[current]
	for _, s := range allowed {
		if s == next {
			return TransitionResult{IsValid: true}
		}
	}
	if !IsClosedStage(current) && StageIndex(next) < StageIndex(current) {
		return TransitionResult{IsValid: true, Reason: RegressionReason}
	}

	res := TransitionResult{Reason: fmt.Sprintf("Cannot transition from %s to %s", current, next)}
	if len(allowed) > 0 {
		suggested := allowed[0]
		res.SuggestedStage = &suggested
	}
	return res
}

func IsClosedStage(stage models.Stage) bool {
	return stage == models.StageClosedWon || stage == models.StageClosedLost
}

func IsActiveStage(stage models.Stage) bool {
	return stage.Valid() && !IsClosedStage(stage)
}

func IsWonStage(stage models.Stage) bool  { return stage == models.StageClosedWon }
func IsLostStage(stage models.Stage) bool { return stage == models.StageClosedLost }

// StageProbability - вес этапа в прогнозе (0..1)
func StageProbability(stage models.Stage) float64 {
	return stageProbability[stage]
}

// OpportunityDefaults - этап и статус новой сделки
func OpportunityDefaults() (models.Stage, models.Status) {
	return models.StageNewLead, models.StatusActive
}

// ValidateOpportunityData проверяет поля сделки и возвращает первое нарушение.
// now передается явно, чтобы функция оставалась чистой.
func ValidateOpportunityData(in models.OpportunityInput, now time.Time) error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return domain.NewViolation(domain.CodeRequiredName, "Opportunity name is required")
	}
	if in.OrganizationID == nil || strings.TrimSpace(*in.OrganizationID) == "" {
		return domain.NewViolation(domain.CodeRequiredOrganization, "Organization is required")
	}
	if in.EstimatedValue != nil {
		v := *in.EstimatedValue
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return domain.NewViolation(domain.CodeInvalidValue, "Estimated value must be a non-negative number")
		}
	}
	if utf8.RuneCountInString(*in.Name) > MaxOpportunityNameLength {
		return domain.NewViolation(domain.CodeNameTooLong, "Opportunity name must be %d characters or less", MaxOpportunityNameLength)
	}
	if in.Stage != nil && !in.Stage.Valid() {
		return domain.NewViolation(domain.CodeInvalidStage, "Invalid stage: %s", *in.Stage)
	}
	if in.Status != nil && !in.Status.Valid() {
		return domain.NewViolation(domain.CodeInvalidStatus, "Invalid status: %s", *in.Status)
	}
	if in.Context != nil && *in.Context != "" && !in.Context.Valid() {
		return domain.NewViolation(domain.CodeInvalidContext, "Invalid context: %s", *in.Context)
	}
	// для закрытых сделок дата в прошлом ожидаема
	if in.CloseDate != nil && in.CloseDate.Before(now) && in.Stage != nil && !IsClosedStage(*in.Stage) {
		return domain.NewViolation(domain.CodeInvalidCloseDate, "Close date cannot be in the past for active opportunities")
	}
	return nil
}

// StatusForStage возвращает статус, обязательный для закрытого этапа
func StatusForStage(stage models.Stage) (models.Status, bool) {
	switch stage {
	case models.StageClosedWon:
		return models.StatusClosedWon, true
	case models.StageClosedLost:
		return models.StatusClosedLost, true
	}
	return "", false
}

// SyncStatusWithStage применяет каскад этап -> статус: закрытый этап
// всегда переписывает статус, для активного статус остается прежним.
func SyncStatusWithStage(stage models.Stage, status models.Status) models.Status {
	if forced, ok := StatusForStage(stage); ok {
		return forced
	}
	return status
}

// ValidateStatusTransition проверяет смену статуса при текущем этапе.
// Закрытый статус требует соответствующего закрытого этапа, а у закрытого
// этапа статус не может отличаться от закрытого.
func ValidateStatusTransition(current, next models.Status, stage models.Stage) bool {
	if !next.Valid() {
		return false
	}
	if next == models.StatusClosedWon && stage != models.StageClosedWon {
		return false
	}
	if next == models.StatusClosedLost && stage != models.StageClosedLost {
		return false
	}
	if required, ok := StatusForStage(stage); ok {
		return next == required
	}
	// между незакрытыми статусами переход свободный, current на решение не влияет
	return true
}

// NameParams - исходные данные для имени сделки
type NameParams struct {
	OrganizationName         string                    `json:"organizationName"`
	Context                  models.OpportunityContext `json:"context,omitempty"`
	PrincipalName            string                    `json:"principalName,omitempty"`
	ExistingOpportunityCount int                       `json:"existingOpportunityCount,omitempty"`
}

// GenerateOpportunityName собирает имя "{org} - {context} ({principal}) #{n}".
// Каждый суффикс необязателен, порядок фиксирован; контекст Custom не выводится.
func GenerateOpportunityName(p NameParams) string {
	var b strings.Builder
	b.WriteString(p.OrganizationName)
	if p.Context != "" && p.Context != models.ContextCustom {
		b.WriteString(" - ")
		b.WriteString(string(p.Context))
	}
	if principal := strings.TrimSpace(p.PrincipalName); principal != "" {
		fmt.Fprintf(&b, " (%s)", principal)
	}
	if p.ExistingOpportunityCount > 0 {
		fmt.Fprintf(&b, " #%d", p.ExistingOpportunityCount+1)
	}
	return b.String()
}

// CalculateWinRate - процент выигранных среди закрытых сделок; 0 если закрытых нет
func CalculateWinRate(opps []models.Opportunity) float64 {
	var won, lost int
	for _, o := range opps {
		switch {
		case IsWonStage(o.Stage):
			won++
		case IsLostStage(o.Stage):
			lost++
		}
	}
	if won+lost == 0 {
		return 0
	}
	return 100 * float64(won) / float64(won+lost)
}

// CalculateAverageDealSize - среднее estimated_value по всем сделкам
func CalculateAverageDealSize(opps []models.Opportunity) float64 {
	if len(opps) == 0 {
		return 0
	}
	var total float64
	for _, o := range opps {
		total += o.EstimatedValue
	}
	return total / float64(len(opps))
}

// CalculateWeightedPipeline - сумма активных сделок, взвешенная вероятностью этапа
func CalculateWeightedPipeline(opps []models.Opportunity) float64 {
	var total float64
	for _, o := range opps {
		if IsActiveStage(o.Stage) {
			total += o.EstimatedValue * StageProbability(o.Stage)
		}
	}
	return total
}
