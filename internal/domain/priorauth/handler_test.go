package priorauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/priorauth/priorauth/internal/platform/auth"
)

func newHandlerFixture(t *testing.T) (*Handler, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	return NewHandler(f.svc), f
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Create(t *testing.T) {
	h, f := newHandlerFixture(t)
	e := echo.New()

	body := fmt.Sprintf(`{
		"patient_id": %q,
		"provider_id": %q,
		"payer_id": %q,
		"icd_code": "M17.11",
		"icd_description": "Unilateral primary osteoarthritis, right knee",
		"cpt_code": "73721",
		"cpt_description": "MRI lower extremity without contrast",
		"cpt_requires_prior_auth": true,
		"clinical_notes": "Six weeks of conservative therapy without improvement.",
		"documented_by": "dr-lopez",
		"required_response_by": %q
	}`, f.patientID, f.providerID, f.payerID,
		time.Now().UTC().Add(14*24*time.Hour).Format(time.RFC3339))

	req := jsonRequest(http.MethodPost, "/api/v1/prior-authorizations", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id, err := uuid.Parse(resp["id"])
	if err != nil {
		t.Fatalf("response id is not a uuid: %v", err)
	}
	if _, err := f.repo.GetByID(context.Background(), id); err != nil {
		t.Errorf("created request not persisted: %v", err)
	}
}

func TestHandler_Create_ValidationError(t *testing.T) {
	h, f := newHandlerFixture(t)
	e := echo.New()

	body := fmt.Sprintf(`{
		"patient_id": %q,
		"provider_id": %q,
		"payer_id": %q,
		"icd_code": "M17.11",
		"cpt_code": "999",
		"clinical_notes": "n",
		"documented_by": "dr-lopez",
		"required_response_by": %q
	}`, f.patientID, f.providerID, f.payerID,
		time.Now().UTC().Add(24*time.Hour).Format(time.RFC3339))

	req := jsonRequest(http.MethodPost, "/api/v1/prior-authorizations", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Create(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandler_Get(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var d Detail
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if d.Status != StatusSubmitted {
		t.Errorf("status = %s", d.Status)
	}
	if len(d.Transitions) != 1 {
		t.Errorf("expected 1 transition, got %d", len(d.Transitions))
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Approve(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	e := echo.New()

	req := jsonRequest(http.MethodPut, "/", `{"actor":"rev-1","notes":"ok"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.Approve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	r, _ := f.repo.GetByID(context.Background(), id)
	if r.Status != StatusApproved {
		t.Errorf("expected approved, got %s", r.Status)
	}
}

func TestHandler_Approve_ActorFromAuthContext(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	e := echo.New()

	req := jsonRequest(http.MethodPut, "/", `{}`)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "reviewer-7")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.Approve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, _ := f.repo.GetByID(context.Background(), id)
	hist := r.History()
	if hist[len(hist)-1].TransitionedBy != "reviewer-7" {
		t.Errorf("actor = %q, want reviewer-7", hist[len(hist)-1].TransitionedBy)
	}
}

func TestHandler_Deny(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	e := echo.New()

	req := jsonRequest(http.MethodPut, "/", `{"actor":"rev-1","reason":"out-of-network","notes":"provider not contracted"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.Deny(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	r, _ := f.repo.GetByID(context.Background(), id)
	hist := r.History()
	last := hist[len(hist)-1]
	if last.Reason == nil || *last.Reason != ReasonOutOfNetwork {
		t.Error("expected denial reason on transition")
	}
}

func TestHandler_Deny_InvalidReason(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	e := echo.New()

	req := jsonRequest(http.MethodPut, "/", `{"actor":"rev-1","reason":"because","notes":"n"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.Deny(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_InvalidTransitionIsConflict(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	e := echo.New()

	// Appeal a request that was never denied.
	req := jsonRequest(http.MethodPut, "/", `{"actor":"dr-lopez","notes":"j"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.Appeal(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", httpErr.Code)
	}
}

func TestHandler_ConflictOnConcurrentModification(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	f.repo.updateErr = ErrConflict
	e := echo.New()

	req := jsonRequest(http.MethodPut, "/", `{"actor":"rev-1"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.Approve(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_ListPending(t *testing.T) {
	h, f := newHandlerFixture(t)
	f.submit(t)
	approved := f.submit(t)
	if err := f.svc.Approve(context.Background(), approved, "rev-1", ""); err != nil {
		t.Fatal(err)
	}
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPending(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 pending summary, got %d", len(items))
	}
}

func TestHandler_Stats(t *testing.T) {
	h, f := newHandlerFixture(t)
	f.submit(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 1 || stats.Pending != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandler_GetClaimFHIR(t *testing.T) {
	h, f := newHandlerFixture(t)
	id := f.submit(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.GetClaimFHIR(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var claim map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claim["resourceType"] != "Claim" {
		t.Errorf("resourceType = %v", claim["resourceType"])
	}
	if claim["use"] != "preauthorization" {
		t.Errorf("use = %v", claim["use"])
	}
}

func TestHandler_GetClaimFHIR_NotFound(t *testing.T) {
	h, _ := newHandlerFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.GetClaimFHIR(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var outcome map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome["resourceType"] != "OperationOutcome" {
		t.Errorf("resourceType = %v", outcome["resourceType"])
	}
}
