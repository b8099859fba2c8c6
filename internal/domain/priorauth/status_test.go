package priorauth

import "testing"

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{
		StatusDraft, StatusSubmitted, StatusUnderReview, StatusAdditionalInfoRequested,
		StatusApproved, StatusDenied, StatusAppealed, StatusAppealApproved,
		StatusAppealDenied, StatusExpired, StatusCanceled,
	} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if Status("rejected").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestStatus_Pending(t *testing.T) {
	pending := map[Status]bool{
		StatusSubmitted:               true,
		StatusUnderReview:             true,
		StatusAdditionalInfoRequested: true,
	}
	for s := range validStatuses {
		if got := s.Pending(); got != pending[s] {
			t.Errorf("%s: Pending() = %v, want %v", s, got, pending[s])
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusApproved:       true,
		StatusAppealApproved: true,
		StatusAppealDenied:   true,
		StatusExpired:        true,
		StatusCanceled:       true,
	}
	for s := range validStatuses {
		if got := s.Terminal(); got != terminal[s] {
			t.Errorf("%s: Terminal() = %v, want %v", s, got, terminal[s])
		}
	}

	// Denied is neither pending nor terminal: it can still be appealed.
	if StatusDenied.Terminal() {
		t.Error("denied must not be terminal")
	}
	if StatusDenied.Pending() {
		t.Error("denied must not be pending")
	}
}

func TestDenialReason_Valid(t *testing.T) {
	for _, r := range []DenialReason{
		ReasonNotMedicallyNecessary, ReasonServiceNotCovered,
		ReasonRequiresAlternativeTreatment, ReasonInsufficientDocumentation,
		ReasonOutOfNetwork, ReasonDuplicateRequest, ReasonEligibilityIssue,
		ReasonPriorAuthNotRequired, ReasonOther,
	} {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if DenialReason("because").Valid() {
		t.Error("expected unknown reason to be invalid")
	}
}
