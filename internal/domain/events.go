package domain

import (
	"sync"
	"time"

	"crm/models"
)

type EventName string

const (
	EventOpportunityCreated      EventName = "OpportunityCreated"
	EventOpportunityStageChanged EventName = "OpportunityStageChanged"
	EventOpportunityClosed       EventName = "OpportunityClosed"
	EventOpportunityValueUpdated EventName = "OpportunityValueUpdated"
	EventOrganizationCreated     EventName = "OrganizationCreated"
	EventOrganizationUpdated     EventName = "OrganizationUpdated"
)

// Payload - плоские данные конкретного события
type Payload interface {
	EventName() EventName
}

// Event - запись о изменении состояния внутри процесса
type Event struct {
	Name       EventName `json:"name"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    Payload   `json:"payload"`
}

func NewEvent(p Payload, at time.Time) Event {
	return Event{Name: p.EventName(), OccurredAt: at, Payload: p}
}

type OpportunityCreated struct {
	OpportunityID  string       `json:"opportunityId"`
	OrganizationID string       `json:"organizationId"`
	Stage          models.Stage `json:"stage"`
	Value          float64      `json:"value"`
}

func (OpportunityCreated) EventName() EventName { return EventOpportunityCreated }

type OpportunityStageChanged struct {
	OpportunityID string       `json:"opportunityId"`
	OldStage      models.Stage `json:"oldStage"`
	NewStage      models.Stage `json:"newStage"`
	ChangedBy     string       `json:"changedBy,omitempty"`
}

func (OpportunityStageChanged) EventName() EventName { return EventOpportunityStageChanged }

type OpportunityClosed struct {
	OpportunityID string       `json:"opportunityId"`
	FinalStage    models.Stage `json:"finalStage"`
	FinalValue    float64      `json:"finalValue"`
	ClosedAt      time.Time    `json:"closedAt"`
}

func (OpportunityClosed) EventName() EventName { return EventOpportunityClosed }

type OpportunityValueUpdated struct {
	OpportunityID string  `json:"opportunityId"`
	OldValue      float64 `json:"oldValue"`
	NewValue      float64 `json:"newValue"`
}

func (OpportunityValueUpdated) EventName() EventName { return EventOpportunityValueUpdated }

type OrganizationCreated struct {
	OrganizationID string                  `json:"organizationId"`
	Type           models.OrganizationType `json:"type"`
	Priority       models.Priority         `json:"priority"`
}

func (OrganizationCreated) EventName() EventName { return EventOrganizationCreated }

type OrganizationUpdated struct {
	OrganizationID string   `json:"organizationId"`
	Fields         []string `json:"fields"`
}

func (OrganizationUpdated) EventName() EventName { return EventOrganizationUpdated }

// EventSink принимает доменные события
type EventSink interface {
	Record(e Event)
}

// EventLog - журнал событий только на добавление; очищается явным вызовом Clear
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Record(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

// Events возвращает копию накопленных событий
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *EventLog) Clear() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// MultiSink рассылает событие во все вложенные приемники по порядку
type MultiSink []EventSink

func (m MultiSink) Record(e Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(e)
		}
	}
}
