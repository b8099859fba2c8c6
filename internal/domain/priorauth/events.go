package priorauth

import "github.com/google/uuid"

// Event is a typed fact describing a completed status transition. Events are
// buffered on the aggregate and drained by the service layer after a
// successful persist; they are never dispatched before the write is durable.
type Event interface {
	EventType() string
	AuthorizationID() uuid.UUID
}

type SubmittedEvent struct {
	RequestID uuid.UUID
}

func (e SubmittedEvent) EventType() string { return "prior-auth.submitted" }
func (e SubmittedEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type ApprovedEvent struct {
	RequestID  uuid.UUID
	ReviewerID string
}

func (e ApprovedEvent) EventType() string { return "prior-auth.approved" }
func (e ApprovedEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type DeniedEvent struct {
	RequestID  uuid.UUID
	ReviewerID string
	Reason     DenialReason
}

func (e DeniedEvent) EventType() string { return "prior-auth.denied" }
func (e DeniedEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type AdditionalInfoRequestedEvent struct {
	RequestID   uuid.UUID
	RequestedBy string
}

func (e AdditionalInfoRequestedEvent) EventType() string { return "prior-auth.additional-info-requested" }
func (e AdditionalInfoRequestedEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type AppealedEvent struct {
	RequestID  uuid.UUID
	AppealedBy string
}

func (e AppealedEvent) EventType() string { return "prior-auth.appealed" }
func (e AppealedEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type AppealApprovedEvent struct {
	RequestID  uuid.UUID
	ReviewerID string
}

func (e AppealApprovedEvent) EventType() string { return "prior-auth.appeal-approved" }
func (e AppealApprovedEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type AppealDeniedEvent struct {
	RequestID  uuid.UUID
	ReviewerID string
}

func (e AppealDeniedEvent) EventType() string { return "prior-auth.appeal-denied" }
func (e AppealDeniedEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type ExpiredEvent struct {
	RequestID uuid.UUID
}

func (e ExpiredEvent) EventType() string { return "prior-auth.expired" }
func (e ExpiredEvent) AuthorizationID() uuid.UUID { return e.RequestID }

type CanceledEvent struct {
	RequestID  uuid.UUID
	CanceledBy string
}

func (e CanceledEvent) EventType() string { return "prior-auth.canceled" }
func (e CanceledEvent) AuthorizationID() uuid.UUID { return e.RequestID }
