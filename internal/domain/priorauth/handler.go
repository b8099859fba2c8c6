package priorauth

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/priorauth/priorauth/internal/platform/auth"
	"github.com/priorauth/priorauth/internal/platform/fhir"
	"github.com/priorauth/priorauth/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	// REST read endpoints – admin, clinician, billing
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "billing"))
	readGroup.GET("", h.List)
	readGroup.GET("/pending", h.ListPending)
	readGroup.GET("/stats", h.Stats)
	readGroup.GET("/patient/:patientId", h.ListByPatient)
	readGroup.GET("/:id", h.Get)

	// Requesting-side operations – admin, clinician
	requestGroup := api.Group("", auth.RequireRole("admin", "clinician"))
	requestGroup.POST("", h.Create)
	requestGroup.PUT("/:id/resubmit", h.Resubmit)
	requestGroup.PUT("/:id/appeal", h.Appeal)
	requestGroup.PUT("/:id/cancel", h.Cancel)

	// Payer review decisions – admin, reviewer
	reviewGroup := api.Group("", auth.RequireRole("admin", "reviewer"))
	reviewGroup.PUT("/:id/approve", h.Approve)
	reviewGroup.PUT("/:id/deny", h.Deny)
	reviewGroup.PUT("/:id/additional-info", h.RequestAdditionalInfo)
	reviewGroup.PUT("/:id/appeal-approve", h.AppealApprove)
	reviewGroup.PUT("/:id/appeal-deny", h.AppealDeny)

	// FHIR read endpoints
	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "clinician", "billing"))
	fhirRead.GET("/Claim/:id", h.GetClaimFHIR)
}

type createRequest struct {
	PatientID            uuid.UUID `json:"patient_id"`
	ProviderID           uuid.UUID `json:"provider_id"`
	PayerID              uuid.UUID `json:"payer_id"`
	ICDCode              string    `json:"icd_code"`
	ICDDescription       string    `json:"icd_description"`
	CPTCode              string    `json:"cpt_code"`
	CPTDescription       string    `json:"cpt_description"`
	CPTRequiresPriorAuth bool      `json:"cpt_requires_prior_auth"`
	ClinicalNotes        string    `json:"clinical_notes"`
	DocumentedBy         string    `json:"documented_by"`
	SupportingDocument   string    `json:"supporting_document,omitempty"`
	RequiredResponseBy   time.Time `json:"required_response_by"`
}

type actionRequest struct {
	Actor string `json:"actor,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type denyRequest struct {
	Actor  string       `json:"actor,omitempty"`
	Reason DenialReason `json:"reason"`
	Notes  string       `json:"notes"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := SubmitInput{
		PatientID:                req.PatientID,
		ProviderID:               req.ProviderID,
		PayerID:                  req.PayerID,
		ICDCode:                  req.ICDCode,
		ICDDescription:           req.ICDDescription,
		CPTCode:                  req.CPTCode,
		CPTDescription:           req.CPTDescription,
		CPTRequiresPriorAuth:     req.CPTRequiresPriorAuth,
		ClinicalNotes:            req.ClinicalNotes,
		ClinicalDocumentedBy:     req.DocumentedBy,
		ClinicalSupportingDocRef: req.SupportingDocument,
		RequiredResponseBy:       req.RequiredResponseBy,
	}
	id, err := h.svc.SubmitNew(c.Request().Context(), in)
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"id": id})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	items, err := h.svc.GetByPatient(c.Request().Context(), patientID)
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPending(c echo.Context) error {
	items, err := h.svc.GetPending(c.Request().Context())
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Approve(c echo.Context) error {
	return h.action(c, func(id uuid.UUID, req actionRequest, actor string) error {
		return h.svc.Approve(c.Request().Context(), id, actor, req.Notes)
	})
}

func (h *Handler) Deny(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req denyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := h.actor(c, req.Actor)
	if err := h.svc.Deny(c.Request().Context(), id, actor, req.Reason, req.Notes); err != nil {
		return h.toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RequestAdditionalInfo(c echo.Context) error {
	return h.action(c, func(id uuid.UUID, req actionRequest, actor string) error {
		return h.svc.RequestAdditionalInfo(c.Request().Context(), id, actor, req.Notes)
	})
}

func (h *Handler) Resubmit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Resubmit(c.Request().Context(), id); err != nil {
		return h.toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Appeal(c echo.Context) error {
	return h.action(c, func(id uuid.UUID, req actionRequest, actor string) error {
		return h.svc.Appeal(c.Request().Context(), id, actor, req.Notes)
	})
}

func (h *Handler) AppealApprove(c echo.Context) error {
	return h.action(c, func(id uuid.UUID, req actionRequest, actor string) error {
		return h.svc.AppealApprove(c.Request().Context(), id, actor, req.Notes)
	})
}

func (h *Handler) AppealDeny(c echo.Context) error {
	return h.action(c, func(id uuid.UUID, req actionRequest, actor string) error {
		return h.svc.AppealDeny(c.Request().Context(), id, actor, req.Notes)
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.action(c, func(id uuid.UUID, req actionRequest, actor string) error {
		return h.svc.Cancel(c.Request().Context(), id, actor, req.Notes)
	})
}

// action factors the shared shape of the transition endpoints: parse the id,
// bind the body, resolve the actor, call the use case.
func (h *Handler) action(c echo.Context, fn func(id uuid.UUID, req actionRequest, actor string) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := fn(id, req, h.actor(c, req.Actor)); err != nil {
		return h.toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// actor prefers an explicit actor from the request body and falls back to the
// authenticated user.
func (h *Handler) actor(c echo.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return auth.UserIDFromContext(c.Request().Context())
}

func (h *Handler) toHTTPError(err error) error {
	var (
		validationErr *ValidationError
		transitionErr *InvalidTransitionError
	)
	switch {
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &transitionErr):
		return echo.NewHTTPError(http.StatusConflict, transitionErr.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "concurrent modification, retry the request")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// ===== FHIR Handlers =====

func (h *Handler) GetClaimFHIR(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Claim", c.Param("id")))
	}
	r, err := h.svc.GetAggregate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Claim", id.String()))
		}
		return h.toHTTPError(err)
	}
	return c.JSON(http.StatusOK, r.ToFHIR())
}
