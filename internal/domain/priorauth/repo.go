package priorauth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository loads and saves authorization aggregates. Update must perform a
// version-guarded write and return ErrConflict when the stored version no
// longer matches the aggregate's.
type Repository interface {
	Add(ctx context.Context, r *AuthorizationRequest) error
	Update(ctx context.Context, r *AuthorizationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuthorizationRequest, error)
	GetByPatient(ctx context.Context, patientID uuid.UUID) ([]*AuthorizationRequest, error)
	GetPending(ctx context.Context) ([]*AuthorizationRequest, error)
	List(ctx context.Context, limit, offset int) ([]*AuthorizationRequest, int, error)
}

// ReferencedParty is the minimal projection of a patient, provider or payer
// the service needs for reference validation and summary display.
type ReferencedParty struct {
	ID   uuid.UUID
	Name string
}

// ReferenceDirectory resolves the entities an authorization refers to.
// Implementations return an error matching ErrNotFound when the reference
// does not exist.
type ReferenceDirectory interface {
	Patient(ctx context.Context, id uuid.UUID) (*ReferencedParty, error)
	Provider(ctx context.Context, id uuid.UUID) (*ReferencedParty, error)
	Payer(ctx context.Context, id uuid.UUID) (*ReferencedParty, error)
}

// StatusNotifier pushes status changes to subscribers. Delivery is
// best-effort: the service logs failures and never fails the use case over
// them.
type StatusNotifier interface {
	NotifyStatusChanged(ctx context.Context, requestID uuid.UUID, newStatus Status) error
}

// AuditSink receives one entry per lifecycle event.
type AuditSink interface {
	Record(at time.Time, action, performedBy string, requestID uuid.UUID, details string)
}
