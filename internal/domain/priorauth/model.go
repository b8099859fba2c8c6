package priorauth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/priorauth/priorauth/internal/platform/fhir"
)

// StatusTransition is one immutable entry in a request's status history.
// Entries are append-only; they are never mutated or deleted once created.
type StatusTransition struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	RequestID      uuid.UUID     `db:"request_id" json:"request_id"`
	FromStatus     Status        `db:"from_status" json:"from_status"`
	ToStatus       Status        `db:"to_status" json:"to_status"`
	TransitionedBy string        `db:"transitioned_by" json:"transitioned_by"`
	Reason         *DenialReason `db:"denial_reason" json:"denial_reason,omitempty"`
	Notes          string        `db:"notes" json:"notes,omitempty"`
	TransitionedAt time.Time     `db:"transitioned_at" json:"transitioned_at"`
}

// AuthorizationRequest is the prior authorization aggregate. It is the sole
// owner of its status: every state change goes through one of the operation
// methods below, which enforce the transition table, append a
// StatusTransition to the history, and buffer a lifecycle event.
type AuthorizationRequest struct {
	ID                 uuid.UUID             `db:"id" json:"id"`
	PatientID          uuid.UUID             `db:"patient_id" json:"patient_id"`
	ProviderID         uuid.UUID             `db:"provider_id" json:"provider_id"`
	PayerID            uuid.UUID             `db:"payer_id" json:"payer_id"`
	ICDCode            ICDCode               `json:"icd_code"`
	CPTCode            CPTCode               `json:"cpt_code"`
	Justification      ClinicalJustification `json:"clinical_justification"`
	Status             Status                `db:"status" json:"status"`
	RequiredResponseBy time.Time             `db:"required_response_by" json:"required_response_by"`
	VersionID          int                   `db:"version_id" json:"version_id"`
	CreatedAt          time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt          *time.Time            `db:"updated_at" json:"updated_at,omitempty"`

	transitions []StatusTransition
	events      []Event
}

// NewAuthorizationRequest creates an aggregate in Draft with an empty
// history. The referenced patient, provider and payer must already have been
// validated by the caller.
func NewAuthorizationRequest(
	patientID, providerID, payerID uuid.UUID,
	icd ICDCode,
	cpt CPTCode,
	justification ClinicalJustification,
	requiredResponseBy time.Time,
) *AuthorizationRequest {
	return &AuthorizationRequest{
		ID:                 uuid.New(),
		PatientID:          patientID,
		ProviderID:         providerID,
		PayerID:            payerID,
		ICDCode:            icd,
		CPTCode:            cpt,
		Justification:      justification,
		Status:             StatusDraft,
		RequiredResponseBy: requiredResponseBy,
		VersionID:          0,
		CreatedAt:          time.Now().UTC(),
	}
}

// GetVersionID returns the current version.
func (r *AuthorizationRequest) GetVersionID() int { return r.VersionID }

// SetVersionID sets the current version.
func (r *AuthorizationRequest) SetVersionID(v int) { r.VersionID = v }

// History returns the ordered status transitions. The returned slice is a
// copy; insertion order is chronological order.
func (r *AuthorizationRequest) History() []StatusTransition {
	out := make([]StatusTransition, len(r.transitions))
	copy(out, r.transitions)
	return out
}

// RestoreHistory replaces the in-memory history with rows loaded from
// storage. For repository use only.
func (r *AuthorizationRequest) RestoreHistory(transitions []StatusTransition) {
	r.transitions = transitions
}

// NewTransitions returns the transitions appended since the aggregate held n
// entries. Repositories use it to persist only the unsaved tail.
func (r *AuthorizationRequest) NewTransitions(n int) []StatusTransition {
	if n >= len(r.transitions) {
		return nil
	}
	out := make([]StatusTransition, len(r.transitions)-n)
	copy(out, r.transitions[n:])
	return out
}

// DrainEvents returns the lifecycle events emitted since the last drain and
// clears the buffer. The service layer drains after a successful persist.
func (r *AuthorizationRequest) DrainEvents() []Event {
	out := r.events
	r.events = nil
	return out
}

// Submit moves a Draft or AdditionalInfoRequested request into Submitted.
func (r *AuthorizationRequest) Submit() error {
	if err := r.ensureTransition(StatusSubmitted, StatusDraft, StatusAdditionalInfoRequested); err != nil {
		return err
	}
	r.transitionTo(StatusSubmitted, "system", nil, "Request submitted for review.")
	r.events = append(r.events, SubmittedEvent{RequestID: r.ID})
	return nil
}

// Approve records a reviewer's approval. Notes are optional.
func (r *AuthorizationRequest) Approve(reviewerID, notes string) error {
	if err := requireActor("reviewer_id", reviewerID); err != nil {
		return err
	}
	if err := r.ensureTransition(StatusApproved, StatusSubmitted, StatusUnderReview); err != nil {
		return err
	}
	r.transitionTo(StatusApproved, reviewerID, nil, notes)
	r.events = append(r.events, ApprovedEvent{RequestID: r.ID, ReviewerID: reviewerID})
	return nil
}

// Deny records a reviewer's denial with a categorical reason. The reason is
// stored as a first-class field on the transition; the notes carry it only
// as a readable prefix.
func (r *AuthorizationRequest) Deny(reviewerID string, reason DenialReason, notes string) error {
	if err := requireActor("reviewer_id", reviewerID); err != nil {
		return err
	}
	if !reason.Valid() {
		return &ValidationError{Field: "reason", Message: fmt.Sprintf("invalid denial reason: %s", reason)}
	}
	if strings.TrimSpace(notes) == "" {
		return &ValidationError{Field: "notes", Message: "denial notes are required"}
	}
	if err := r.ensureTransition(StatusDenied, StatusSubmitted, StatusUnderReview); err != nil {
		return err
	}
	r.transitionTo(StatusDenied, reviewerID, &reason, fmt.Sprintf("[%s] %s", reason, notes))
	r.events = append(r.events, DeniedEvent{RequestID: r.ID, ReviewerID: reviewerID, Reason: reason})
	return nil
}

// RequestAdditionalInfo sends the request back to the provider for more
// documentation.
func (r *AuthorizationRequest) RequestAdditionalInfo(requestedBy, notes string) error {
	if err := requireActor("requested_by", requestedBy); err != nil {
		return err
	}
	if strings.TrimSpace(notes) == "" {
		return &ValidationError{Field: "notes", Message: "a description of the missing information is required"}
	}
	if err := r.ensureTransition(StatusAdditionalInfoRequested, StatusSubmitted, StatusUnderReview); err != nil {
		return err
	}
	r.transitionTo(StatusAdditionalInfoRequested, requestedBy, nil, notes)
	r.events = append(r.events, AdditionalInfoRequestedEvent{RequestID: r.ID, RequestedBy: requestedBy})
	return nil
}

// Appeal contests a denial with new clinical justification.
func (r *AuthorizationRequest) Appeal(appealedBy, justification string) error {
	if err := requireActor("appealed_by", appealedBy); err != nil {
		return err
	}
	if strings.TrimSpace(justification) == "" {
		return &ValidationError{Field: "justification", Message: "appeal justification is required"}
	}
	if err := r.ensureTransition(StatusAppealed, StatusDenied); err != nil {
		return err
	}
	r.transitionTo(StatusAppealed, appealedBy, nil, justification)
	r.events = append(r.events, AppealedEvent{RequestID: r.ID, AppealedBy: appealedBy})
	return nil
}

// AppealApprove overturns a denial on appeal.
func (r *AuthorizationRequest) AppealApprove(reviewerID, notes string) error {
	if err := requireActor("reviewer_id", reviewerID); err != nil {
		return err
	}
	if err := r.ensureTransition(StatusAppealApproved, StatusAppealed); err != nil {
		return err
	}
	r.transitionTo(StatusAppealApproved, reviewerID, nil, notes)
	r.events = append(r.events, AppealApprovedEvent{RequestID: r.ID, ReviewerID: reviewerID})
	return nil
}

// AppealDeny upholds a denial on appeal.
func (r *AuthorizationRequest) AppealDeny(reviewerID, notes string) error {
	if err := requireActor("reviewer_id", reviewerID); err != nil {
		return err
	}
	if err := r.ensureTransition(StatusAppealDenied, StatusAppealed); err != nil {
		return err
	}
	r.transitionTo(StatusAppealDenied, reviewerID, nil, notes)
	r.events = append(r.events, AppealDeniedEvent{RequestID: r.ID, ReviewerID: reviewerID})
	return nil
}

// Cancel withdraws a request that has not been decided yet.
func (r *AuthorizationRequest) Cancel(canceledBy, notes string) error {
	if err := requireActor("canceled_by", canceledBy); err != nil {
		return err
	}
	if err := r.ensureTransition(StatusCanceled,
		StatusDraft, StatusSubmitted, StatusUnderReview, StatusAdditionalInfoRequested); err != nil {
		return err
	}
	r.transitionTo(StatusCanceled, canceledBy, nil, notes)
	r.events = append(r.events, CanceledEvent{RequestID: r.ID, CanceledBy: canceledBy})
	return nil
}

// ExpireIfOverdue transitions a pending request to Expired once the payer's
// response deadline has passed. It is idempotent and actor-free: when the
// request is not overdue, or not in an expirable state, it is a silent no-op
// with no mutation and no event.
func (r *AuthorizationRequest) ExpireIfOverdue() {
	if !time.Now().UTC().After(r.RequiredResponseBy) {
		return
	}
	if !r.Status.Pending() {
		return
	}
	r.transitionTo(StatusExpired, "system", nil, "Request expired due to exceeding required response date.")
	r.events = append(r.events, ExpiredEvent{RequestID: r.ID})
}

func (r *AuthorizationRequest) ensureTransition(to Status, validFrom ...Status) error {
	for _, from := range validFrom {
		if r.Status == from {
			return nil
		}
	}
	return &InvalidTransitionError{From: r.Status, To: to}
}

func (r *AuthorizationRequest) transitionTo(to Status, transitionedBy string, reason *DenialReason, notes string) {
	now := time.Now().UTC()
	r.transitions = append(r.transitions, StatusTransition{
		ID:             uuid.New(),
		RequestID:      r.ID,
		FromStatus:     r.Status,
		ToStatus:       to,
		TransitionedBy: transitionedBy,
		Reason:         reason,
		Notes:          strings.TrimSpace(notes),
		TransitionedAt: now,
	})
	r.Status = to
	r.UpdatedAt = &now
}

func requireActor(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: field, Message: "actor identifier cannot be empty"}
	}
	return nil
}

var fhirClaimStatus = map[Status]string{
	StatusDraft:                   "draft",
	StatusSubmitted:               "active",
	StatusUnderReview:             "active",
	StatusAdditionalInfoRequested: "active",
	StatusApproved:                "active",
	StatusDenied:                  "active",
	StatusAppealed:                "active",
	StatusAppealApproved:          "active",
	StatusAppealDenied:            "active",
	StatusExpired:                 "cancelled",
	StatusCanceled:                "cancelled",
}

// ToFHIR renders the request as a FHIR Claim resource with
// use=preauthorization.
func (r *AuthorizationRequest) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Claim",
		"id":           r.ID.String(),
		"status":       fhirClaimStatus[r.Status],
		"use":          "preauthorization",
		"created":      r.CreatedAt.Format("2006-01-02"),
		"type": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/claim-type",
				Code:   "professional",
			}},
		},
		"priority": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/processpriority",
				Code:   "normal",
			}},
		},
		"patient":  fhir.Reference{Reference: fhir.FormatReference("Patient", r.PatientID.String())},
		"provider": fhir.Reference{Reference: fhir.FormatReference("Practitioner", r.ProviderID.String())},
		"insurer":  fhir.Reference{Reference: fhir.FormatReference("Organization", r.PayerID.String())},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", r.VersionID),
			LastUpdated: r.lastUpdated(),
			Profile:     []string{"http://hl7.org/fhir/StructureDefinition/Claim"},
		},
		"diagnosis": []map[string]interface{}{{
			"sequence": 1,
			"diagnosisCodeableConcept": fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System:  "http://hl7.org/fhir/sid/icd-10-cm",
					Code:    r.ICDCode.Code,
					Display: r.ICDCode.Description,
				}},
			},
		}},
		"item": []map[string]interface{}{{
			"sequence": 1,
			"productOrService": fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System:  "http://www.ama-assn.org/go/cpt",
					Code:    r.CPTCode.Code,
					Display: r.CPTCode.Description,
				}},
			},
		}},
	}
	if r.Justification.Notes != "" {
		result["supportingInfo"] = []map[string]interface{}{{
			"sequence": 1,
			"category": fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System: "http://terminology.hl7.org/CodeSystem/claiminformationcategory",
					Code:   "info",
				}},
			},
			"valueString": r.Justification.Notes,
		}}
	}
	return result
}

func (r *AuthorizationRequest) lastUpdated() time.Time {
	if r.UpdatedAt != nil {
		return *r.UpdatedAt
	}
	return r.CreatedAt
}
