package handlers

import (
	"context"

	"crm/internal/domain"
	"crm/internal/rules"
	"crm/internal/services"
	"crm/models"
)

// OpportunityService - операции над сделками, которые нужны обработчикам
type OpportunityService interface {
	Create(ctx context.Context, in models.OpportunityInput) domain.Result[models.Opportunity]
	Get(ctx context.Context, id string) domain.Result[models.Opportunity]
	List(ctx context.Context) domain.Result[[]models.Opportunity]
	GetActiveOpportunities(ctx context.Context) domain.Result[[]models.Opportunity]
	GetByOrganization(ctx context.Context, organizationID string) domain.Result[[]models.Opportunity]
	Update(ctx context.Context, id string, patch models.OpportunityInput) domain.Result[models.Opportunity]
	UpdateStage(ctx context.Context, id string, stage models.Stage, updatedBy string) domain.Result[models.Opportunity]
	SoftDelete(ctx context.Context, id string) domain.Result[struct{}]

	GenerateName(p rules.NameParams) string
	ValidateStageTransition(current, next models.Stage) rules.TransitionResult
	CalculatePipelineMetrics(opps []models.Opportunity) services.PipelineMetrics

	Events() []domain.Event
	ClearEvents()
}

type OrganizationService interface {
	Create(ctx context.Context, in models.OrganizationInput) domain.Result[models.Organization]
	Get(ctx context.Context, id string) domain.Result[models.Organization]
	List(ctx context.Context) domain.Result[[]models.Organization]
	Update(ctx context.Context, id string, patch models.OrganizationInput) domain.Result[models.Organization]
	SoftDelete(ctx context.Context, id string) domain.Result[struct{}]

	ValidateBusiness(ctx context.Context, id string) domain.Result[rules.BusinessValidation]
	RelationshipScore(ctx context.Context, id string, activity services.Activity) domain.Result[services.RelationshipScore]
	Performance(ctx context.Context, id string, activity services.Activity) domain.Result[rules.PerformanceMetrics]
	Segmentation(ctx context.Context) domain.Result[rules.SegmentationAnalysis]
}

var (
	_ OpportunityService  = (*services.OpportunityService)(nil)
	_ OrganizationService = (*services.OrganizationService)(nil)
)
