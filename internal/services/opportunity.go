package services

import (
	"context"
	"time"

	"crm/internal/domain"
	"crm/internal/rules"
	"crm/models"
)

// ErrOpportunityNotFound - текст ошибки для отсутствующей сделки
const ErrOpportunityNotFound = "Opportunity not found"

// OpportunityService управляет жизненным циклом сделок.
// Сервис не защищает от гонок: два одновременных UpdateStage по одной
// сделке приведут к тому, что сохранится последняя запись.
type OpportunityService struct {
	base
	repo domain.Repository[models.Opportunity]
}

func NewOpportunityService(repo domain.Repository[models.Opportunity], opts ...Option) *OpportunityService {
	return &OpportunityService{base: newBase(opts), repo: repo}
}

// Create заполняет этап и статус по умолчанию, проверяет данные и сохраняет сделку
func (s *OpportunityService) Create(ctx context.Context, in models.OpportunityInput) (res domain.Result[models.Opportunity]) {
	const op = "opportunity.create"
	defer track(&s.base, ctx, op, &res)()

	now := s.now()
	stage, status := rules.OpportunityDefaults()
	if in.Stage == nil {
		in.Stage = &stage
	}
	if in.Status == nil {
		in.Status = &status
	}
	if err := rules.ValidateOpportunityData(in, now); err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}
	synced := rules.SyncStatusWithStage(*in.Stage, *in.Status)
	if !rules.ValidateStatusTransition(models.StatusActive, synced, *in.Stage) {
		return domain.Failuref[models.Opportunity]("Status %s is not allowed for stage %s", synced, *in.Stage)
	}

	var o models.Opportunity
	o.Apply(in)
	o.Status = synced
	o.StageUpdatedAt = now

	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}
	s.record(domain.OpportunityCreated{
		OpportunityID:  created.ID,
		OrganizationID: created.OrganizationID,
		Stage:          created.Stage,
		Value:          created.EstimatedValue,
	})
	s.logger.InfoContext(ctx, "opportunity created", "opportunity_id", created.ID, "organization_id", created.OrganizationID)
	return domain.Success(created)
}

// UpdateStage переводит сделку на новый этап. Закрытый этап безусловно
// переписывает статус; закрытие дополнительно публикует OpportunityClosed.
func (s *OpportunityService) UpdateStage(ctx context.Context, id string, newStage models.Stage, updatedBy string) (res domain.Result[models.Opportunity]) {
	const op = "opportunity.update_stage"
	defer track(&s.base, ctx, op, &res)()

	current, err := s.repo.FindByID(ctx, id)
	if isNotFound(err) {
		return domain.Failure[models.Opportunity](ErrOpportunityNotFound)
	}
	if err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}

	tr := rules.ValidateStageTransition(current.Stage, newStage)
	if !tr.IsValid {
		return domain.Failure[models.Opportunity](tr.Reason)
	}

	oldStage := current.Stage
	now := s.now()
	applyStage(&current, newStage, now)

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}
	s.recordStageChange(updated, oldStage, updatedBy, now)
	s.logger.InfoContext(ctx, "opportunity stage changed", "opportunity_id", id, "from", oldStage, "to", newStage)
	return domain.Success(updated)
}

// Update накладывает частичные изменения на сделку. Смена этапа проходит
// те же проверки и каскад статуса, что и UpdateStage.
func (s *OpportunityService) Update(ctx context.Context, id string, patch models.OpportunityInput) (res domain.Result[models.Opportunity]) {
	const op = "opportunity.update"
	defer track(&s.base, ctx, op, &res)()

	current, err := s.repo.FindByID(ctx, id)
	if isNotFound(err) {
		return domain.Failure[models.Opportunity](ErrOpportunityNotFound)
	}
	if err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}

	now := s.now()
	merged := current
	merged.Apply(patch)
	if err := rules.ValidateOpportunityData(merged.Input(), now); err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}

	stageChanged := merged.Stage != current.Stage
	if stageChanged {
		tr := rules.ValidateStageTransition(current.Stage, merged.Stage)
		if !tr.IsValid {
			return domain.Failure[models.Opportunity](tr.Reason)
		}
		merged.StageUpdatedAt = now
		merged.Status = rules.SyncStatusWithStage(merged.Stage, merged.Status)
	}
	if patch.Status != nil && *patch.Status != current.Status {
		if !rules.ValidateStatusTransition(current.Status, *patch.Status, merged.Stage) {
			return domain.Failure[models.Opportunity]("Invalid status transition")
		}
	}

	updated, err := s.repo.Update(ctx, merged)
	if err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}
	if stageChanged {
		s.recordStageChange(updated, current.Stage, "", now)
	}
	if patch.EstimatedValue != nil && current.EstimatedValue != updated.EstimatedValue {
		s.record(domain.OpportunityValueUpdated{
			OpportunityID: id,
			OldValue:      current.EstimatedValue,
			NewValue:      updated.EstimatedValue,
		})
	}
	return domain.Success(updated)
}

// SoftDelete помечает сделку удаленной средствами хранилища
func (s *OpportunityService) SoftDelete(ctx context.Context, id string) (res domain.Result[struct{}]) {
	const op = "opportunity.soft_delete"
	defer track(&s.base, ctx, op, &res)()

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if isNotFound(err) {
			return domain.Failure[struct{}](ErrOpportunityNotFound)
		}
		return fail[struct{}](&s.base, ctx, op, err)
	}
	return domain.Success(struct{}{})
}

func (s *OpportunityService) Get(ctx context.Context, id string) (res domain.Result[models.Opportunity]) {
	const op = "opportunity.get"
	defer track(&s.base, ctx, op, &res)()

	o, err := s.repo.FindByID(ctx, id)
	if isNotFound(err) {
		return domain.Failure[models.Opportunity](ErrOpportunityNotFound)
	}
	if err != nil {
		return fail[models.Opportunity](&s.base, ctx, op, err)
	}
	return domain.Success(o)
}

func (s *OpportunityService) List(ctx context.Context) domain.Result[[]models.Opportunity] {
	return s.filter(ctx, "opportunity.list", func(models.Opportunity) bool { return true })
}

// GetActiveOpportunities возвращает сделки на незакрытых этапах
func (s *OpportunityService) GetActiveOpportunities(ctx context.Context) domain.Result[[]models.Opportunity] {
	return s.filter(ctx, "opportunity.list_active", func(o models.Opportunity) bool {
		return rules.IsActiveStage(o.Stage)
	})
}

func (s *OpportunityService) GetByOrganization(ctx context.Context, organizationID string) domain.Result[[]models.Opportunity] {
	return s.filter(ctx, "opportunity.list_by_organization", func(o models.Opportunity) bool {
		return o.OrganizationID == organizationID
	})
}

func (s *OpportunityService) filter(ctx context.Context, op string, keep func(models.Opportunity) bool) (res domain.Result[[]models.Opportunity]) {
	defer track(&s.base, ctx, op, &res)()

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return fail[[]models.Opportunity](&s.base, ctx, op, err)
	}
	out := make([]models.Opportunity, 0, len(all))
	for _, o := range all {
		if keep(o) {
			out = append(out, o)
		}
	}
	return domain.Success(out)
}

// GenerateName - обертка над правилом без обращения к хранилищу
func (s *OpportunityService) GenerateName(p rules.NameParams) string {
	return rules.GenerateOpportunityName(p)
}

func (s *OpportunityService) ValidateStageTransition(current, next models.Stage) rules.TransitionResult {
	return rules.ValidateStageTransition(current, next)
}

// CalculateWeightedPipeline - сумма активных сделок, взвешенная вероятностью этапа
func (s *OpportunityService) CalculateWeightedPipeline(opps []models.Opportunity) float64 {
	return rules.CalculateWeightedPipeline(opps)
}

// PartitionMetrics - количество и сумма сделок в группе
type PartitionMetrics struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type StageMetrics struct {
	Stage models.Stage `json:"stage"`
	PartitionMetrics
}

// PipelineMetrics - сводка воронки; ByStage содержит все этапы в каноническом порядке
type PipelineMetrics struct {
	TotalCount       int              `json:"totalCount"`
	TotalValue       float64          `json:"totalValue"`
	Active           PartitionMetrics `json:"active"`
	Won              PartitionMetrics `json:"won"`
	Lost             PartitionMetrics `json:"lost"`
	ByStage          []StageMetrics   `json:"byStage"`
	AverageDealSize  float64          `json:"averageDealSize"`
	WinRate          float64          `json:"winRate"`
	WeightedPipeline float64          `json:"weightedPipeline"`
}

// CalculatePipelineMetrics разбивает сделки на активные, выигранные и проигранные
func (s *OpportunityService) CalculatePipelineMetrics(opps []models.Opportunity) PipelineMetrics {
	stages := models.Stages()
	m := PipelineMetrics{ByStage: make([]StageMetrics, len(stages))}
	index := make(map[models.Stage]int, len(stages))
	for i, st := range stages {
		m.ByStage[i].Stage = st
		index[st] = i
	}
	for _, o := range opps {
		m.TotalCount++
		m.TotalValue += o.EstimatedValue
		if i, ok := index[o.Stage]; ok {
			m.ByStage[i].Count++
			m.ByStage[i].Value += o.EstimatedValue
		}
		var part *PartitionMetrics
		switch {
		case rules.IsWonStage(o.Stage):
			part = &m.Won
		case rules.IsLostStage(o.Stage):
			part = &m.Lost
		case rules.IsActiveStage(o.Stage):
			part = &m.Active
		default:
			continue
		}
		part.Count++
		part.Value += o.EstimatedValue
	}
	m.AverageDealSize = rules.CalculateAverageDealSize(opps)
	m.WinRate = rules.CalculateWinRate(opps)
	m.WeightedPipeline = rules.CalculateWeightedPipeline(opps)
	return m
}

// applyStage меняет этап вместе со статусом; stage_updated_at обновляется
// только при фактической смене этапа, поэтому повторный вызов ничего не меняет.
func applyStage(o *models.Opportunity, stage models.Stage, now time.Time) {
	if o.Stage != stage || o.StageUpdatedAt.IsZero() {
		o.StageUpdatedAt = now
	}
	o.Stage = stage
	o.Status = rules.SyncStatusWithStage(stage, o.Status)
}

func (s *OpportunityService) recordStageChange(o models.Opportunity, oldStage models.Stage, changedBy string, now time.Time) {
	s.record(domain.OpportunityStageChanged{
		OpportunityID: o.ID,
		OldStage:      oldStage,
		NewStage:      o.Stage,
		ChangedBy:     changedBy,
	})
	if rules.IsClosedStage(o.Stage) {
		s.record(domain.OpportunityClosed{
			OpportunityID: o.ID,
			FinalStage:    o.Stage,
			FinalValue:    o.EstimatedValue,
			ClosedAt:      now,
		})
	}
}
