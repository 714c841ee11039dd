// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"salesdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published when marketing intake creates a new lead.
type LeadCreated struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	CreatedBy uuid.UUID `json:"createdBy"`
	Source    string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadTriaged is published when a lead's triage outcome is recorded.
type LeadTriaged struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Outcome string    `json:"outcome"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e LeadTriaged) EventName() string { return "leads.triaged" }

// LeadHandedOver is published when a qualified lead enters the sales pool.
type LeadHandedOver struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Priority int       `json:"priority"`
	ActorID  uuid.UUID `json:"actorId"`
}

func (e LeadHandedOver) EventName() string { return "leads.handed_over" }

// LeadClaimed is published when a sales actor takes exclusive ownership of a
// pooled lead.
type LeadClaimed struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	OwnerID       uuid.UUID `json:"ownerId"`
	AccountID     uuid.UUID `json:"accountId"`
	OpportunityID uuid.UUID `json:"opportunityId"`
}

func (e LeadClaimed) EventName() string { return "leads.claimed" }

// LeadConverted is published when a claimed lead's lifecycle is terminated
// after conversion.
type LeadConverted struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	AccountID *uuid.UUID `json:"accountId,omitempty"`
	OwnerID   uuid.UUID  `json:"ownerId"`
}

func (e LeadConverted) EventName() string { return "leads.converted" }

// TargetConverted is published when a prospecting target is converted
// directly into an account, contact, and opportunity.
type TargetConverted struct {
	BaseEvent
	TargetID      uuid.UUID `json:"targetId"`
	AccountID     uuid.UUID `json:"accountId"`
	ContactID     uuid.UUID `json:"contactId"`
	OpportunityID uuid.UUID `json:"opportunityId"`
	ActorID       uuid.UUID `json:"actorId"`
}

func (e TargetConverted) EventName() string { return "leads.target.converted" }

// =============================================================================
// Opportunity Pipeline Events
// =============================================================================

// OpportunityStageChanged is published on every pipeline stage transition.
type OpportunityStageChanged struct {
	BaseEvent
	OpportunityID uuid.UUID `json:"opportunityId"`
	FromStage     string    `json:"fromStage"`
	ToStage       string    `json:"toStage"`
	ActorID       uuid.UUID `json:"actorId"`
}

func (e OpportunityStageChanged) EventName() string { return "opportunities.stage.changed" }

// =============================================================================
// Quote Events
// =============================================================================

// QuoteCreated is published when a new quote version is created.
type QuoteCreated struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	OpportunityID uuid.UUID `json:"opportunityId"`
	Version       int       `json:"version"`
	ActorID       uuid.UUID `json:"actorId"`
}

func (e QuoteCreated) EventName() string { return "quotes.created" }

// QuoteStatusChanged is published when a quote moves between Draft, Sent,
// Accepted, and Rejected.
type QuoteStatusChanged struct {
	BaseEvent
	QuoteID   uuid.UUID `json:"quoteId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e QuoteStatusChanged) EventName() string { return "quotes.status.changed" }

// =============================================================================
// Activity Events
// =============================================================================

// ActivityCompleted is published when an activity is closed, carrying the
// successor activity when one was generated in the same unit of work.
type ActivityCompleted struct {
	BaseEvent
	ActivityID     uuid.UUID  `json:"activityId"`
	NextActivityID *uuid.UUID `json:"nextActivityId,omitempty"`
	Outcome        string     `json:"outcome,omitempty"`
	ActorID        uuid.UUID  `json:"actorId"`
}

func (e ActivityCompleted) EventName() string { return "activities.completed" }

// FollowUpScheduled is published when a follow-up activity is created with a
// due date, so the scheduler can enqueue a reminder.
type FollowUpScheduled struct {
	BaseEvent
	ActivityID uuid.UUID `json:"activityId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	DueDate    time.Time `json:"dueDate"`
}

func (e FollowUpScheduled) EventName() string { return "activities.followup.scheduled" }
