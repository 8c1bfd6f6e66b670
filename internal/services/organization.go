package services

import (
	"context"
	"time"

	"crm/internal/domain"
	"crm/internal/rules"
	"crm/models"
)

const ErrOrganizationNotFound = "Organization not found"

// Activity - сведения о контактах и взаимодействиях, которые хранятся вне этого сервиса
type Activity struct {
	ContactCount      int        `json:"contactCount" validate:"gte=0"`
	InteractionCount  int        `json:"interactionCount" validate:"gte=0"`
	LastInteractionAt *time.Time `json:"lastInteractionAt,omitempty"`
}

// RelationshipScore - оценка отношений и ее уровень
type RelationshipScore struct {
	OrganizationID string     `json:"organizationId"`
	Score          int        `json:"score"`
	Tier           rules.Tier `json:"tier"`
}

// OrganizationService работает с организациями через OrganizationRules.
// Репозиторий сделок нужен для подсчета сделок в оценках; может быть nil.
type OrganizationService struct {
	base
	repo          domain.Repository[models.Organization]
	opportunities domain.Repository[models.Opportunity]
}

func NewOrganizationService(repo domain.Repository[models.Organization], opportunities domain.Repository[models.Opportunity], opts ...Option) *OrganizationService {
	return &OrganizationService{base: newBase(opts), repo: repo, opportunities: opportunities}
}

// Create подставляет значения по умолчанию для типа, проверяет уникальность имени и сохраняет
func (s *OrganizationService) Create(ctx context.Context, in models.OrganizationInput) (res domain.Result[models.Organization]) {
	const op = "organization.create"
	defer track(&s.base, ctx, op, &res)()

	if in.Type != nil {
		defaults := rules.GetDefaults(*in.Type)
		if in.Priority == nil {
			in.Priority = &defaults.Priority
		}
		if in.IsPrincipal == nil {
			in.IsPrincipal = &defaults.IsPrincipal
		}
		if in.IsDistributor == nil {
			in.IsDistributor = &defaults.IsDistributor
		}
	}

	existing, err := s.repo.FindAll(ctx)
	if err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}
	vc := rules.ValidationContext{ExistingOrganizations: existing, RequireCompleteAddress: s.requireAddress}
	if err := rules.ValidateOrganizationData(in, vc); err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}

	var org models.Organization
	org.Apply(in)
	created, err := s.repo.Create(ctx, org)
	if err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}
	s.record(domain.OrganizationCreated{OrganizationID: created.ID, Type: created.Type, Priority: created.Priority})
	s.logger.InfoContext(ctx, "organization created", "organization_id", created.ID, "type", created.Type)
	return domain.Success(created)
}

// Update проверяет организацию целиком после наложения изменений
func (s *OrganizationService) Update(ctx context.Context, id string, patch models.OrganizationInput) (res domain.Result[models.Organization]) {
	const op = "organization.update"
	defer track(&s.base, ctx, op, &res)()

	current, err := s.repo.FindByID(ctx, id)
	if isNotFound(err) {
		return domain.Failure[models.Organization](ErrOrganizationNotFound)
	}
	if err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}
	existing, err := s.repo.FindAll(ctx)
	if err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}

	merged := current
	merged.Apply(patch)
	vc := rules.ValidationContext{ExistingOrganizations: existing, ExcludeID: id, RequireCompleteAddress: s.requireAddress}
	if err := rules.ValidateOrganizationData(merged.Input(), vc); err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}

	updated, err := s.repo.Update(ctx, merged)
	if err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}
	s.record(domain.OrganizationUpdated{OrganizationID: id, Fields: patchedFields(patch)})
	return domain.Success(updated)
}

func (s *OrganizationService) Get(ctx context.Context, id string) (res domain.Result[models.Organization]) {
	const op = "organization.get"
	defer track(&s.base, ctx, op, &res)()

	org, err := s.repo.FindByID(ctx, id)
	if isNotFound(err) {
		return domain.Failure[models.Organization](ErrOrganizationNotFound)
	}
	if err != nil {
		return fail[models.Organization](&s.base, ctx, op, err)
	}
	return domain.Success(org)
}

func (s *OrganizationService) List(ctx context.Context) (res domain.Result[[]models.Organization]) {
	const op = "organization.list"
	defer track(&s.base, ctx, op, &res)()

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return fail[[]models.Organization](&s.base, ctx, op, err)
	}
	return domain.Success(all)
}

func (s *OrganizationService) SoftDelete(ctx context.Context, id string) (res domain.Result[struct{}]) {
	const op = "organization.soft_delete"
	defer track(&s.base, ctx, op, &res)()

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if isNotFound(err) {
			return domain.Failure[struct{}](ErrOrganizationNotFound)
		}
		return fail[struct{}](&s.base, ctx, op, err)
	}
	return domain.Success(struct{}{})
}

// ValidateBusiness выполняет мягкую проверку организации с учетом ее сделок
func (s *OrganizationService) ValidateBusiness(ctx context.Context, id string) (res domain.Result[rules.BusinessValidation]) {
	const op = "organization.validate_business"
	defer track(&s.base, ctx, op, &res)()

	org, opps, err := s.withOpportunities(ctx, id)
	if isNotFound(err) {
		return domain.Failure[rules.BusinessValidation](ErrOrganizationNotFound)
	}
	if err != nil {
		return fail[rules.BusinessValidation](&s.base, ctx, op, err)
	}
	return domain.Success(rules.ValidateOrganizationBusiness(org, rules.BusinessContext{
		OpportunityCount: len(opps),
		KeySegments:      s.keySegments,
	}))
}

// RelationshipScore считает оценку отношений; сделки берутся из хранилища,
// контакты и взаимодействия передает вызывающий.
func (s *OrganizationService) RelationshipScore(ctx context.Context, id string, activity Activity) (res domain.Result[RelationshipScore]) {
	const op = "organization.relationship_score"
	defer track(&s.base, ctx, op, &res)()

	org, opps, err := s.withOpportunities(ctx, id)
	if isNotFound(err) {
		return domain.Failure[RelationshipScore](ErrOrganizationNotFound)
	}
	if err != nil {
		return fail[RelationshipScore](&s.base, ctx, op, err)
	}
	score := rules.CalculateRelationshipScore(s.relationshipInput(org, opps, activity))
	return domain.Success(RelationshipScore{OrganizationID: org.ID, Score: score, Tier: rules.RelationshipTier(score)})
}

func (s *OrganizationService) Performance(ctx context.Context, id string, activity Activity) (res domain.Result[rules.PerformanceMetrics]) {
	const op = "organization.performance"
	defer track(&s.base, ctx, op, &res)()

	_, opps, err := s.withOpportunities(ctx, id)
	if isNotFound(err) {
		return domain.Failure[rules.PerformanceMetrics](ErrOrganizationNotFound)
	}
	if err != nil {
		return fail[rules.PerformanceMetrics](&s.base, ctx, op, err)
	}
	return domain.Success(rules.CalculatePerformanceMetrics(rules.PerformanceInput{
		Opportunities:     opps,
		ContactCount:      activity.ContactCount,
		InteractionCount:  activity.InteractionCount,
		LastInteractionAt: activity.LastInteractionAt,
		Now:               s.now(),
	}))
}

// Segmentation оценивает все организации и группирует их по сегментам
func (s *OrganizationService) Segmentation(ctx context.Context) (res domain.Result[rules.SegmentationAnalysis]) {
	const op = "organization.segmentation"
	defer track(&s.base, ctx, op, &res)()

	orgs, err := s.repo.FindAll(ctx)
	if err != nil {
		return fail[rules.SegmentationAnalysis](&s.base, ctx, op, err)
	}
	byOrg, err := s.opportunitiesByOrganization(ctx)
	if err != nil {
		return fail[rules.SegmentationAnalysis](&s.base, ctx, op, err)
	}
	scored := make([]rules.ScoredOrganization, 0, len(orgs))
	for _, org := range orgs {
		in := s.relationshipInput(org, byOrg[org.ID], Activity{})
		scored = append(scored, rules.ScoredOrganization{Organization: org, Score: rules.CalculateRelationshipScore(in)})
	}
	return domain.Success(rules.AnalyzeSegmentation(scored, s.keySegments))
}

func (s *OrganizationService) relationshipInput(org models.Organization, opps []models.Opportunity, activity Activity) rules.RelationshipInput {
	var total float64
	for _, o := range opps {
		total += o.EstimatedValue
	}
	return rules.RelationshipInput{
		Organization:          org,
		ContactCount:          activity.ContactCount,
		OpportunityCount:      len(opps),
		InteractionCount:      activity.InteractionCount,
		TotalOpportunityValue: total,
		LastInteractionAt:     activity.LastInteractionAt,
		Now:                   s.now(),
	}
}

func (s *OrganizationService) withOpportunities(ctx context.Context, id string) (models.Organization, []models.Opportunity, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.Organization{}, nil, err
	}
	byOrg, err := s.opportunitiesByOrganization(ctx)
	if err != nil {
		return models.Organization{}, nil, err
	}
	return org, byOrg[id], nil
}

func (s *OrganizationService) opportunitiesByOrganization(ctx context.Context) (map[string][]models.Opportunity, error) {
	out := make(map[string][]models.Opportunity)
	if s.opportunities == nil {
		return out, nil
	}
	all, err := s.opportunities.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range all {
		out[o.OrganizationID] = append(out[o.OrganizationID], o)
	}
	return out, nil
}

func patchedFields(in models.OrganizationInput) []string {
	fields := []string{}
	add := func(present bool, name string) {
		if present {
			fields = append(fields, name)
		}
	}
	add(in.Name != nil, "name")
	add(in.Type != nil, "type")
	add(in.Priority != nil, "priority")
	add(in.Segment != nil, "segment")
	add(in.IsPrincipal != nil, "is_principal")
	add(in.IsDistributor != nil, "is_distributor")
	add(in.Description != nil, "description")
	add(in.Notes != nil, "notes")
	add(in.Industry != nil, "industry")
	add(in.Email != nil, "email")
	add(in.Phone != nil, "phone")
	add(in.Website != nil, "website")
	add(in.AddressLine1 != nil || in.City != nil || in.State != nil || in.PostalCode != nil || in.Country != nil, "address")
	add(in.ManagerID != nil, "manager_id")
	return fields
}
