package priorauth

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service orchestrates the authorization use cases: it loads the aggregate,
// invokes the matching aggregate operation, persists, and drains the
// lifecycle events into the audit and notification sinks. State-machine and
// validation errors abort before any persistence call; sink failures are
// logged and never mask a successful transition.
type Service struct {
	repo     Repository
	refs     ReferenceDirectory
	notifier StatusNotifier
	audit    AuditSink
	logger   zerolog.Logger
}

func NewService(repo Repository, refs ReferenceDirectory, notifier StatusNotifier, audit AuditSink, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		refs:     refs,
		notifier: notifier,
		audit:    audit,
		logger:   logger.With().Str("component", "priorauth").Logger(),
	}
}

// SubmitInput is the raw input for creating a new authorization request.
type SubmitInput struct {
	PatientID                uuid.UUID
	ProviderID               uuid.UUID
	PayerID                  uuid.UUID
	ICDCode                  string
	ICDDescription           string
	CPTCode                  string
	CPTDescription           string
	CPTRequiresPriorAuth     bool
	ClinicalNotes            string
	ClinicalDocumentedBy     string
	ClinicalSupportingDocRef string
	RequiredResponseBy       time.Time
}

// SubmitNew validates the referenced entities and the raw input, constructs
// the aggregate in Draft, immediately submits it, persists, and returns the
// new id.
func (s *Service) SubmitNew(ctx context.Context, in SubmitInput) (uuid.UUID, error) {
	if _, err := s.refs.Patient(ctx, in.PatientID); err != nil {
		return uuid.Nil, err
	}
	if _, err := s.refs.Provider(ctx, in.ProviderID); err != nil {
		return uuid.Nil, err
	}
	if _, err := s.refs.Payer(ctx, in.PayerID); err != nil {
		return uuid.Nil, err
	}

	icd, err := NewICDCode(in.ICDCode, in.ICDDescription)
	if err != nil {
		return uuid.Nil, err
	}
	cpt, err := NewCPTCode(in.CPTCode, in.CPTDescription, in.CPTRequiresPriorAuth)
	if err != nil {
		return uuid.Nil, err
	}
	justification, err := NewClinicalJustification(in.ClinicalNotes, in.ClinicalDocumentedBy, in.ClinicalSupportingDocRef)
	if err != nil {
		return uuid.Nil, err
	}
	if !in.RequiredResponseBy.After(time.Now().UTC()) {
		return uuid.Nil, &ValidationError{Field: "required_response_by", Message: "required response date must be in the future"}
	}

	r := NewAuthorizationRequest(in.PatientID, in.ProviderID, in.PayerID, icd, cpt, justification, in.RequiredResponseBy.UTC())
	if err := r.Submit(); err != nil {
		return uuid.Nil, err
	}

	if err := s.repo.Add(ctx, r); err != nil {
		return uuid.Nil, fmt.Errorf("persist authorization: %w", err)
	}
	s.dispatchEvents(ctx, r)
	return r.ID, nil
}

// Approve records a reviewer's approval on a pending request.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewerID, notes string) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.Approve(reviewerID, notes)
	})
}

// Deny records a reviewer's denial with a categorical reason.
func (s *Service) Deny(ctx context.Context, id uuid.UUID, reviewerID string, reason DenialReason, notes string) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.Deny(reviewerID, reason, notes)
	})
}

// RequestAdditionalInfo sends a pending request back for more documentation.
func (s *Service) RequestAdditionalInfo(ctx context.Context, id uuid.UUID, requestedBy, notes string) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.RequestAdditionalInfo(requestedBy, notes)
	})
}

// Resubmit moves an AdditionalInfoRequested request back into Submitted.
func (s *Service) Resubmit(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.Submit()
	})
}

// Appeal contests a denial.
func (s *Service) Appeal(ctx context.Context, id uuid.UUID, appealedBy, justification string) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.Appeal(appealedBy, justification)
	})
}

// AppealApprove overturns a denial on appeal.
func (s *Service) AppealApprove(ctx context.Context, id uuid.UUID, reviewerID, notes string) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.AppealApprove(reviewerID, notes)
	})
}

// AppealDeny upholds a denial on appeal.
func (s *Service) AppealDeny(ctx context.Context, id uuid.UUID, reviewerID, notes string) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.AppealDeny(reviewerID, notes)
	})
}

// Cancel withdraws an undecided request.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, canceledBy, notes string) error {
	return s.transition(ctx, id, func(r *AuthorizationRequest) error {
		return r.Cancel(canceledBy, notes)
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, op func(*AuthorizationRequest) error) error {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := op(r); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return err
	}
	s.dispatchEvents(ctx, r)
	return nil
}

// ExpireDueRequests sweeps all pending requests and expires the overdue
// ones. Each id is processed independently: a failure is logged and the
// sweep continues with the next id. Returns the number of requests expired.
func (s *Service) ExpireDueRequests(ctx context.Context) (int, error) {
	pending, err := s.repo.GetPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending authorizations: %w", err)
	}

	expired := 0
	for _, r := range pending {
		before := r.Status
		r.ExpireIfOverdue()
		if r.Status == before {
			continue
		}
		if err := s.repo.Update(ctx, r); err != nil {
			s.logger.Error().Err(err).
				Str("request_id", r.ID.String()).
				Msg("failed to persist expiration")
			continue
		}
		s.dispatchEvents(ctx, r)
		expired++
	}
	return expired, nil
}

// dispatchEvents drains the aggregate's event buffer into the audit and
// notification sinks. Called only after a successful persist; sink failures
// must not fail the use case.
func (s *Service) dispatchEvents(ctx context.Context, r *AuthorizationRequest) {
	for _, ev := range r.DrainEvents() {
		actor, details := describeEvent(ev)
		s.audit.Record(time.Now().UTC(), ev.EventType(), actor, r.ID, details)

		if err := s.notifier.NotifyStatusChanged(ctx, r.ID, r.Status); err != nil {
			s.logger.Warn().Err(err).
				Str("request_id", r.ID.String()).
				Str("event", ev.EventType()).
				Msg("status notification failed")
		}
	}
}

func describeEvent(ev Event) (actor, details string) {
	switch e := ev.(type) {
	case SubmittedEvent:
		return "system", "request submitted for review"
	case ApprovedEvent:
		return e.ReviewerID, "request approved"
	case DeniedEvent:
		return e.ReviewerID, fmt.Sprintf("request denied: %s", e.Reason)
	case AdditionalInfoRequestedEvent:
		return e.RequestedBy, "additional information requested"
	case AppealedEvent:
		return e.AppealedBy, "denial appealed"
	case AppealApprovedEvent:
		return e.ReviewerID, "appeal approved"
	case AppealDeniedEvent:
		return e.ReviewerID, "appeal denied"
	case ExpiredEvent:
		return "system", "request expired past required response date"
	case CanceledEvent:
		return e.CanceledBy, "request canceled"
	default:
		return "system", ev.EventType()
	}
}

// -- Queries --

// GetByID returns the full read projection for one request.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	names := newNameCache(s.refs)
	return s.toDetail(ctx, r, names), nil
}

// GetAggregate returns the raw aggregate, for the FHIR projection.
func (s *Service) GetAggregate(ctx context.Context, id uuid.UUID) (*AuthorizationRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByPatient returns summaries of all requests for one patient.
func (s *Service) GetByPatient(ctx context.Context, patientID uuid.UUID) ([]Summary, error) {
	rs, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.toSummaries(ctx, rs), nil
}

// GetPending returns summaries of all requests awaiting a reviewer action.
func (s *Service) GetPending(ctx context.Context) ([]Summary, error) {
	rs, err := s.repo.GetPending(ctx)
	if err != nil {
		return nil, err
	}
	return s.toSummaries(ctx, rs), nil
}

// List returns a page of summaries plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	rs, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.toSummaries(ctx, rs), total, nil
}

// GetStats computes the aggregated dashboard view: counts per status, the
// denial-reason histogram read from the structured reason field, and the
// average resolution time in days over requests that reached a terminal
// state, rounded to one decimal place.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:      make(map[Status]int),
		DenialReasons: make(map[DenialReason]int),
	}

	// The denial-reason histogram and the resolution average both need the
	// loaded transition history, so the population is walked page by page
	// rather than aggregated in SQL.
	var resolvedDays float64
	var resolved int
	for offset := 0; ; offset += statsPageSize {
		rs, total, err := s.repo.List(ctx, statsPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, r := range rs {
			stats.Total++
			stats.ByStatus[r.Status]++
			switch {
			case r.Status.Pending():
				stats.Pending++
			case r.Status == StatusApproved || r.Status == StatusAppealApproved:
				stats.Approved++
			case r.Status == StatusDenied || r.Status == StatusAppealDenied:
				stats.Denied++
			case r.Status == StatusExpired:
				stats.Expired++
			}

			for _, t := range r.History() {
				if t.ToStatus == StatusDenied && t.Reason != nil {
					stats.DenialReasons[*t.Reason]++
				}
			}

			if r.Status.Terminal() && r.UpdatedAt != nil {
				resolvedDays += r.UpdatedAt.Sub(r.CreatedAt).Hours() / 24
				resolved++
			}
		}

		if len(rs) == 0 || offset+len(rs) >= total {
			break
		}
	}
	if resolved > 0 {
		stats.AverageResolutionDays = math.Round(resolvedDays/float64(resolved)*10) / 10
	}
	return stats, nil
}

const statsPageSize = 1000

func (s *Service) toSummaries(ctx context.Context, rs []*AuthorizationRequest) []Summary {
	names := newNameCache(s.refs)
	out := make([]Summary, 0, len(rs))
	for _, r := range rs {
		out = append(out, Summary{
			ID:                 r.ID,
			PatientName:        names.patient(ctx, r.PatientID),
			ProviderName:       names.provider(ctx, r.ProviderID),
			PayerName:          names.payer(ctx, r.PayerID),
			CPTCode:            r.CPTCode.Code,
			ICDCode:            r.ICDCode.Code,
			Status:             r.Status,
			SubmittedAt:        r.CreatedAt,
			RequiredResponseBy: r.RequiredResponseBy,
		})
	}
	return out
}

func (s *Service) toDetail(ctx context.Context, r *AuthorizationRequest, names *nameCache) *Detail {
	return &Detail{
		ID:                    r.ID,
		PatientName:           names.patient(ctx, r.PatientID),
		ProviderName:          names.provider(ctx, r.ProviderID),
		PayerName:             names.payer(ctx, r.PayerID),
		ICDCode:               r.ICDCode.Code,
		ICDDescription:        r.ICDCode.Description,
		CPTCode:               r.CPTCode.Code,
		CPTDescription:        r.CPTCode.Description,
		Status:                r.Status,
		ClinicalJustification: r.Justification.Notes,
		SubmittedAt:           r.CreatedAt,
		RequiredResponseBy:    r.RequiredResponseBy,
		Transitions:           r.History(),
	}
}

// nameCache memoizes directory lookups for the duration of one query, so
// building a list of summaries does not repeat lookups per row. Missing or
// failed lookups render as "unknown" rather than failing the read.
type nameCache struct {
	refs      ReferenceDirectory
	patients  map[uuid.UUID]string
	providers map[uuid.UUID]string
	payers    map[uuid.UUID]string
}

func newNameCache(refs ReferenceDirectory) *nameCache {
	return &nameCache{
		refs:      refs,
		patients:  make(map[uuid.UUID]string),
		providers: make(map[uuid.UUID]string),
		payers:    make(map[uuid.UUID]string),
	}
}

func (c *nameCache) patient(ctx context.Context, id uuid.UUID) string {
	return c.lookup(ctx, c.patients, id, c.refs.Patient)
}

func (c *nameCache) provider(ctx context.Context, id uuid.UUID) string {
	return c.lookup(ctx, c.providers, id, c.refs.Provider)
}

func (c *nameCache) payer(ctx context.Context, id uuid.UUID) string {
	return c.lookup(ctx, c.payers, id, c.refs.Payer)
}

func (c *nameCache) lookup(ctx context.Context, cache map[uuid.UUID]string, id uuid.UUID,
	fn func(context.Context, uuid.UUID) (*ReferencedParty, error)) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := "unknown"
	if p, err := fn(ctx, id); err == nil {
		name = p.Name
	}
	cache[id] = name
	return name
}
