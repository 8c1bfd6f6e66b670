package models

import "time"

// Сущность Сделки (Opportunity)
type Opportunity struct {
	ID                      string             `db:"id" json:"id"`
	Name                    string             `db:"name" json:"name"`
	OrganizationID          string             `db:"organization_id" json:"organizationId"`
	ContactID               *string            `db:"contact_id" json:"contactId,omitempty"`
	PrincipalOrganizationID *string            `db:"principal_organization_id" json:"principalOrganizationId,omitempty"`
	Stage                   Stage              `db:"stage" json:"stage"`
	Status                  Status             `db:"status" json:"status"`
	EstimatedValue          float64            `db:"estimated_value" json:"estimatedValue"`
	CloseDate               *time.Time         `db:"close_date" json:"closeDate,omitempty"`
	Notes                   string             `db:"notes" json:"notes"`
	Context                 OpportunityContext `db:"context" json:"context,omitempty"`
	StageUpdatedAt          time.Time          `db:"stage_updated_at" json:"stageUpdatedAt"`
	CreatedAt               time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time          `db:"updated_at" json:"updatedAt"`
	DeletedAt               *time.Time         `db:"deleted_at" json:"-"`
}

// OpportunityInput - частичные данные сделки: nil означает "поле не передано"
type OpportunityInput struct {
	Name                    *string             `json:"name"`
	OrganizationID          *string             `json:"organizationId"`
	ContactID               *string             `json:"contactId"`
	PrincipalOrganizationID *string             `json:"principalOrganizationId"`
	Stage                   *Stage              `json:"stage"`
	Status                  *Status             `json:"status"`
	EstimatedValue          *float64            `json:"estimatedValue"`
	CloseDate               *time.Time          `json:"closeDate"`
	Notes                   *string             `json:"notes"`
	Context                 *OpportunityContext `json:"context"`
}

func (in OpportunityInput) HasName() bool           { return in.Name != nil }
func (in OpportunityInput) HasOrganization() bool   { return in.OrganizationID != nil }
func (in OpportunityInput) HasStage() bool          { return in.Stage != nil }
func (in OpportunityInput) HasStatus() bool         { return in.Status != nil }
func (in OpportunityInput) HasEstimatedValue() bool { return in.EstimatedValue != nil }
func (in OpportunityInput) HasCloseDate() bool      { return in.CloseDate != nil }

// Input возвращает все поля сделки как заполненный OpportunityInput
func (o Opportunity) Input() OpportunityInput {
	in := OpportunityInput{
		Name:                    &o.Name,
		OrganizationID:          &o.OrganizationID,
		ContactID:               o.ContactID,
		PrincipalOrganizationID: o.PrincipalOrganizationID,
		Stage:                   &o.Stage,
		Status:                  &o.Status,
		EstimatedValue:          &o.EstimatedValue,
		CloseDate:               o.CloseDate,
		Notes:                   &o.Notes,
	}
	if o.Context != "" {
		in.Context = &o.Context
	}
	return in
}

// Apply переносит переданные поля поверх сделки
func (o *Opportunity) Apply(in OpportunityInput) {
	if in.Name != nil {
		o.Name = *in.Name
	}
	if in.OrganizationID != nil {
		o.OrganizationID = *in.OrganizationID
	}
	if in.ContactID != nil {
		o.ContactID = in.ContactID
	}
	if in.PrincipalOrganizationID != nil {
		o.PrincipalOrganizationID = in.PrincipalOrganizationID
	}
	if in.Stage != nil {
		o.Stage = *in.Stage
	}
	if in.Status != nil {
		o.Status = *in.Status
	}
	if in.EstimatedValue != nil {
		o.EstimatedValue = *in.EstimatedValue
	}
	if in.CloseDate != nil {
		o.CloseDate = in.CloseDate
	}
	if in.Notes != nil {
		o.Notes = *in.Notes
	}
	if in.Context != nil {
		o.Context = *in.Context
	}
}

// Clone возвращает копию сделки без общих с оригиналом указателей
func (o Opportunity) Clone() Opportunity {
	o.ContactID = clonePtr(o.ContactID)
	o.PrincipalOrganizationID = clonePtr(o.PrincipalOrganizationID)
	o.CloseDate = clonePtr(o.CloseDate)
	o.DeletedAt = clonePtr(o.DeletedAt)
	return o
}

func (o Opportunity) Key() string     { return o.ID }
func (o Opportunity) IsDeleted() bool { return o.DeletedAt != nil }

// Stamp назначает идентификатор и даты создания; вызывается хранилищем
func (o *Opportunity) Stamp(id string, now time.Time) {
	o.ID = id
	o.CreatedAt = now
	o.UpdatedAt = now
}

func (o *Opportunity) Touch(now time.Time)       { o.UpdatedAt = now }
func (o *Opportunity) MarkDeleted(now time.Time) { o.DeletedAt = &now }

// Сущность Организации
type Organization struct {
	ID            string           `db:"id" json:"id"`
	Name          string           `db:"name" json:"name"`
	Type          OrganizationType `db:"type" json:"type"`
	Priority      Priority         `db:"priority" json:"priority"`
	Segment       string           `db:"segment" json:"segment"`
	IsPrincipal   bool             `db:"is_principal" json:"isPrincipal"`
	IsDistributor bool             `db:"is_distributor" json:"isDistributor"`
	Description   string           `db:"description" json:"description"`
	Notes         string           `db:"notes" json:"notes"`
	Industry      string           `db:"industry" json:"industry"`
	Email         string           `db:"email" json:"email"`
	Phone         string           `db:"phone" json:"phone"`
	Website       string           `db:"website" json:"website"`
	AddressLine1  string           `db:"address_line1" json:"addressLine1"`
	City          string           `db:"city" json:"city"`
	State         string           `db:"state" json:"state"`
	PostalCode    string           `db:"postal_code" json:"postalCode"`
	Country       string           `db:"country" json:"country"`
	ManagerID     *string          `db:"manager_id" json:"managerId,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updatedAt"`
	DeletedAt     *time.Time       `db:"deleted_at" json:"-"`
}

// OrganizationInput - частичные данные организации
type OrganizationInput struct {
	Name          *string           `json:"name"`
	Type          *OrganizationType `json:"type"`
	Priority      *Priority         `json:"priority"`
	Segment       *string           `json:"segment"`
	IsPrincipal   *bool             `json:"isPrincipal"`
	IsDistributor *bool             `json:"isDistributor"`
	Description   *string           `json:"description"`
	Notes         *string           `json:"notes"`
	Industry      *string           `json:"industry"`
	Email         *string           `json:"email"`
	Phone         *string           `json:"phone"`
	Website       *string           `json:"website"`
	AddressLine1  *string           `json:"addressLine1"`
	City          *string           `json:"city"`
	State         *string           `json:"state"`
	PostalCode    *string           `json:"postalCode"`
	Country       *string           `json:"country"`
	ManagerID     *string           `json:"managerId"`
}

func (o Organization) Input() OrganizationInput {
	return OrganizationInput{
		Name:          &o.Name,
		Type:          &o.Type,
		Priority:      &o.Priority,
		Segment:       &o.Segment,
		IsPrincipal:   &o.IsPrincipal,
		IsDistributor: &o.IsDistributor,
		Description:   &o.Description,
		Notes:         &o.Notes,
		Industry:      &o.Industry,
		Email:         &o.Email,
		Phone:         &o.Phone,
		Website:       &o.Website,
		AddressLine1:  &o.AddressLine1,
		City:          &o.City,
		State:         &o.State,
		PostalCode:    &o.PostalCode,
		Country:       &o.Country,
		ManagerID:     o.ManagerID,
	}
}

func (o *Organization) Apply(in OrganizationInput) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&o.Name, in.Name)
	setString(&o.Segment, in.Segment)
	setString(&o.Description, in.Description)
	setString(&o.Notes, in.Notes)
	setString(&o.Industry, in.Industry)
	setString(&o.Email, in.Email)
	setString(&o.Phone, in.Phone)
	setString(&o.Website, in.Website)
	setString(&o.AddressLine1, in.AddressLine1)
	setString(&o.City, in.City)
	setString(&o.State, in.State)
	setString(&o.PostalCode, in.PostalCode)
	setString(&o.Country, in.Country)
	if in.Type != nil {
		o.Type = *in.Type
	}
	if in.Priority != nil {
		o.Priority = *in.Priority
	}
	if in.IsPrincipal != nil {
		o.IsPrincipal = *in.IsPrincipal
	}
	if in.IsDistributor != nil {
		o.IsDistributor = *in.IsDistributor
	}
	if in.ManagerID != nil {
		o.ManagerID = in.ManagerID
	}
}

func (o Organization) Clone() Organization {
	o.ManagerID = clonePtr(o.ManagerID)
	o.DeletedAt = clonePtr(o.DeletedAt)
	return o
}

func (o Organization) Key() string     { return o.ID }
func (o Organization) IsDeleted() bool { return o.DeletedAt != nil }

func (o *Organization) Stamp(id string, now time.Time) {
	o.ID = id
	o.CreatedAt = now
	o.UpdatedAt = now
}

func (o *Organization) Touch(now time.Time)       { o.UpdatedAt = now }
func (o *Organization) MarkDeleted(now time.Time) { o.DeletedAt = &now }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
