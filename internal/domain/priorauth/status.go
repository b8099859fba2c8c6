package priorauth

// Status is the lifecycle state of a prior authorization request.
type Status string

const (
	StatusDraft                   Status = "draft"
	StatusSubmitted               Status = "submitted"
	StatusUnderReview             Status = "under-review"
	StatusAdditionalInfoRequested Status = "additional-info-requested"
	StatusApproved                Status = "approved"
	StatusDenied                  Status = "denied"
	StatusAppealed                Status = "appealed"
	StatusAppealApproved          Status = "appeal-approved"
	StatusAppealDenied            Status = "appeal-denied"
	StatusExpired                 Status = "expired"
	StatusCanceled                Status = "canceled"
)

var validStatuses = map[Status]bool{
	StatusDraft:                   true,
	StatusSubmitted:               true,
	StatusUnderReview:             true,
	StatusAdditionalInfoRequested: true,
	StatusApproved:                true,
	StatusDenied:                  true,
	StatusAppealed:                true,
	StatusAppealApproved:          true,
	StatusAppealDenied:            true,
	StatusExpired:                 true,
	StatusCanceled:                true,
}

// Valid reports whether s is one of the enumerated lifecycle states.
func (s Status) Valid() bool { return validStatuses[s] }

func (s Status) String() string { return string(s) }

// Pending reports whether the request is awaiting a reviewer action.
func (s Status) Pending() bool {
	return s == StatusSubmitted || s == StatusUnderReview || s == StatusAdditionalInfoRequested
}

// Terminal reports whether no operation-driven transition is defined from s,
// except Denied, which may still be appealed.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusAppealApproved, StatusAppealDenied, StatusExpired, StatusCanceled:
		return true
	}
	return false
}

// PendingStatuses lists the states a request can sit in while awaiting review.
var PendingStatuses = []Status{StatusSubmitted, StatusUnderReview, StatusAdditionalInfoRequested}

// DenialReason is the closed set of categorical reasons a request can be
// denied for. It is recorded as a first-class field on the denial transition;
// the free-text notes carry it only as a human-readable prefix.
type DenialReason string

const (
	ReasonNotMedicallyNecessary        DenialReason = "not-medically-necessary"
	ReasonServiceNotCovered            DenialReason = "service-not-covered"
	ReasonRequiresAlternativeTreatment DenialReason = "requires-alternative-treatment"
	ReasonInsufficientDocumentation    DenialReason = "insufficient-documentation"
	ReasonOutOfNetwork                 DenialReason = "out-of-network"
	ReasonDuplicateRequest             DenialReason = "duplicate-request"
	ReasonEligibilityIssue             DenialReason = "eligibility-issue"
	ReasonPriorAuthNotRequired         DenialReason = "prior-auth-not-required"
	ReasonOther                        DenialReason = "other"
)

var validDenialReasons = map[DenialReason]bool{
	ReasonNotMedicallyNecessary:        true,
	ReasonServiceNotCovered:            true,
	ReasonRequiresAlternativeTreatment: true,
	ReasonInsufficientDocumentation:    true,
	ReasonOutOfNetwork:                 true,
	ReasonDuplicateRequest:             true,
	ReasonEligibilityIssue:             true,
	ReasonPriorAuthNotRequired:         true,
	ReasonOther:                        true,
}

// Valid reports whether r is one of the enumerated denial reasons.
func (r DenialReason) Valid() bool { return validDenialReasons[r] }

func (r DenialReason) String() string { return string(r) }
