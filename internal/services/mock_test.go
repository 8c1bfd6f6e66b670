package services_test

import (
	"context"

	"crm/db/memory"
	"crm/internal/domain"
	"crm/models"
)

// mockOpportunities оборачивает память; заданные Func-поля подменяют вызов
type mockOpportunities struct {
	*memory.Repository[models.Opportunity, *models.Opportunity]
	FindByIDFunc   func(ctx context.Context, id string) (models.Opportunity, error)
	FindAllFunc    func(ctx context.Context) ([]models.Opportunity, error)
	CreateFunc     func(ctx context.Context, o models.Opportunity) (models.Opportunity, error)
	UpdateFunc     func(ctx context.Context, o models.Opportunity) (models.Opportunity, error)
	SoftDeleteFunc func(ctx context.Context, id string) error
}

var _ domain.Repository[models.Opportunity] = (*mockOpportunities)(nil)

func newMockOpportunities() *mockOpportunities {
	return &mockOpportunities{Repository: memory.NewOpportunities()}
}

func (m *mockOpportunities) FindByID(ctx context.Context, id string) (models.Opportunity, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return m.Repository.FindByID(ctx, id)
}

func (m *mockOpportunities) FindAll(ctx context.Context) ([]models.Opportunity, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return m.Repository.FindAll(ctx)
}

func (m *mockOpportunities) Create(ctx context.Context, o models.Opportunity) (models.Opportunity, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return m.Repository.Create(ctx, o)
}

func (m *mockOpportunities) Update(ctx context.Context, o models.Opportunity) (models.Opportunity, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, o)
	}
	return m.Repository.Update(ctx, o)
}

func (m *mockOpportunities) SoftDelete(ctx context.Context, id string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id)
	}
	return m.Repository.SoftDelete(ctx, id)
}

type mockOrganizations struct {
	*memory.Repository[models.Organization, *models.Organization]
	FindAllFunc func(ctx context.Context) ([]models.Organization, error)
	CreateFunc  func(ctx context.Context, o models.Organization) (models.Organization, error)
}

func newMockOrganizations() *mockOrganizations {
	return &mockOrganizations{Repository: memory.NewOrganizations()}
}

func (m *mockOrganizations) FindAll(ctx context.Context) ([]models.Organization, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return m.Repository.FindAll(ctx)
}

func (m *mockOrganizations) Create(ctx context.Context, o models.Organization) (models.Organization, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return m.Repository.Create(ctx, o)
}

func ptr[T any](v T) *T { return &v }
