package models

// Stage - этап воронки продаж
type Stage string

const (
	StageNewLead            Stage = "New Lead"
	StageInitialOutreach    Stage = "Initial Outreach"
	StageSampleVisitOffered Stage = "Sample/Visit Offered"
	StageAwaitingResponse   Stage = "Awaiting Response"
	StageFeedbackLogged     Stage = "Feedback Logged"
	StageDemoScheduled      Stage = "Demo Scheduled"
	StageClosedWon          Stage = "Closed - Won"
	StageClosedLost         Stage = "Closed - Lost"
)

// Stages возвращает этапы в каноническом порядке
func Stages() []Stage {
	return []Stage{
		StageNewLead,
		StageInitialOutreach,
		StageSampleVisitOffered,
		StageAwaitingResponse,
		StageFeedbackLogged,
		StageDemoScheduled,
		StageClosedWon,
		StageClosedLost,
	}
}

func (s Stage) Valid() bool {
	for _, v := range Stages() {
		if v == s {
			return true
		}
	}
	return false
}

// Status - состояние сделки, независимое от этапа (кроме закрытых)
type Status string

const (
	StatusActive     Status = "Active"
	StatusOnHold     Status = "On Hold"
	StatusClosedWon  Status = "Closed - Won"
	StatusClosedLost Status = "Closed - Lost"
	StatusNurturing  Status = "Nurturing"
	StatusQualified  Status = "Qualified"
)

func Statuses() []Status {
	return []Status{StatusActive, StatusOnHold, StatusClosedWon, StatusClosedLost, StatusNurturing, StatusQualified}
}

func (s Status) Valid() bool {
	for _, v := range Statuses() {
		if v == s {
			return true
		}
	}
	return false
}

// OpportunityContext - откуда появилась сделка
type OpportunityContext string

const (
	ContextSiteVisit          OpportunityContext = "Site Visit"
	ContextFoodShow           OpportunityContext = "Food Show"
	ContextNewProductInterest OpportunityContext = "New Product Interest"
	ContextFollowUp           OpportunityContext = "Follow-up"
	ContextDemoRequest        OpportunityContext = "Demo Request"
	ContextSampling           OpportunityContext = "Sampling"
	ContextCustom             OpportunityContext = "Custom"
)

func Contexts() []OpportunityContext {
	return []OpportunityContext{
		ContextSiteVisit,
		ContextFoodShow,
		ContextNewProductInterest,
		ContextFollowUp,
		ContextDemoRequest,
		ContextSampling,
		ContextCustom,
	}
}

func (c OpportunityContext) Valid() bool {
	for _, v := range Contexts() {
		if v == c {
			return true
		}
	}
	return false
}

// OrganizationType - роль организации в цепочке поставок
type OrganizationType string

const (
	OrganizationCustomer    OrganizationType = "customer"
	OrganizationPrincipal   OrganizationType = "principal"
	OrganizationDistributor OrganizationType = "distributor"
	OrganizationProspect    OrganizationType = "prospect"
	OrganizationVendor      OrganizationType = "vendor"
	OrganizationSupplier    OrganizationType = "supplier"
)

func OrganizationTypes() []OrganizationType {
	return []OrganizationType{
		OrganizationCustomer,
		OrganizationPrincipal,
		OrganizationDistributor,
		OrganizationProspect,
		OrganizationVendor,
		OrganizationSupplier,
	}
}

func (t OrganizationType) Valid() bool {
	for _, v := range OrganizationTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// Priority - приоритет клиента, A самый высокий
type Priority string

const (
	PriorityA Priority = "A"
	PriorityB Priority = "B"
	PriorityC Priority = "C"
	PriorityD Priority = "D"
)

func Priorities() []Priority {
	return []Priority{PriorityA, PriorityB, PriorityC, PriorityD}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityA, PriorityB, PriorityC, PriorityD:
		return true
	}
	return false
}
