package clinical

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrec/clinrec/internal/domain/access"
	"github.com/clinrec/clinrec/internal/domain/audit"
	"github.com/clinrec/clinrec/internal/domain/identity"
	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/pkg/pagination"
)

// ActorResolver normalizes caller-supplied identifiers to clinical profile
// ids. Implemented by the identity package.
type ActorResolver interface {
	ResolveActor(ctx context.Context, actor access.Actor) (access.Actor, error)
	ResolvePatientID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	resolver ActorResolver
}

func NewHandler(svc *Service, resolver ActorResolver) *Handler {
	return &Handler{svc: svc, resolver: resolver}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/record", h.GetPatientRecord)

	api.POST("/patients/:id/diagnoses", h.CreateDiagnosis)
	api.GET("/patients/:id/diagnoses", h.ListDiagnoses)
	api.GET("/diagnoses/:id", h.GetDiagnosis)
	api.POST("/diagnoses/:id/resolve", h.ResolveDiagnosis)

	api.POST("/patients/:id/vitals", h.RecordVitalSigns)
	api.GET("/patients/:id/vitals", h.ListVitalSigns)

	api.POST("/patients/:id/history", h.RecordHistoryUpdate)
	api.GET("/patients/:id/history", h.ListHistoryUpdates)
}

// mapError translates domain errors onto HTTP status codes. Audit write
// failures deliberately surface as a generic internal error.
func mapError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	var ad *AccessDenied
	if errors.As(err, &ad) {
		return echo.NewHTTPError(http.StatusForbidden, ad.Error())
	}
	var it *InvalidTransition
	if errors.As(err, &it) {
		return echo.NewHTTPError(http.StatusConflict, it.Error())
	}
	var wf *audit.WriteFailure
	if errors.As(err, &wf) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, identity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// resolveRequest yields the resolved actor and target patient profile id
// for a /patients/:id route.
func (h *Handler) resolveRequest(c echo.Context) (access.Actor, uuid.UUID, error) {
	ctx := c.Request().Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return access.Actor{}, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	actor, err := h.resolver.ResolveActor(ctx, actor)
	if err != nil {
		return access.Actor{}, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown actor identity")
	}

	rawID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return access.Actor{}, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	patientID, err := h.resolver.ResolvePatientID(ctx, rawID)
	if err != nil {
		return access.Actor{}, uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return actor, patientID, nil
}

func emergencyParam(c echo.Context) bool {
	return c.QueryParam("emergency") == "true"
}

func (h *Handler) GetPatientRecord(c echo.Context) error {
	actor, patientID, err := h.resolveRequest(c)
	if err != nil {
		return err
	}
	record, err := h.svc.GetPatientRecord(c.Request().Context(), actor, patientID, emergencyParam(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *Handler) CreateDiagnosis(c echo.Context) error {
	actor, patientID, err := h.resolveRequest(c)
	if err != nil {
		return err
	}

	var d Diagnosis
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d.PatientID = patientID
	d.Resolved = false
	d.ResolutionDate = nil
	d.ResolutionNotes = nil

	if err := h.svc.CreateDiagnosis(c.Request().Context(), actor, &d); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDiagnosis(c echo.Context) error {
	ctx := c.Request().Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	actor, err := h.resolver.ResolveActor(ctx, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown actor identity")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	d, err := h.svc.GetDiagnosis(ctx, actor, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	actor, patientID, err := h.resolveRequest(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDiagnoses(c.Request().Context(), actor, patientID, emergencyParam(c), pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type resolveRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

func (h *Handler) ResolveDiagnosis(c echo.Context) error {
	ctx := c.Request().Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	actor, err := h.resolver.ResolveActor(ctx, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown actor identity")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.ResolveDiagnosis(ctx, actor, id, req.ResolutionNotes); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordVitalSigns(c echo.Context) error {
	actor, patientID, err := h.resolveRequest(c)
	if err != nil {
		return err
	}

	var v VitalSigns
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	v.PatientID = patientID

	if err := h.svc.RecordVitalSigns(c.Request().Context(), actor, &v); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListVitalSigns(c echo.Context) error {
	actor, patientID, err := h.resolveRequest(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVitalSigns(c.Request().Context(), actor, patientID, emergencyParam(c), pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type historyRequest struct {
	Fields map[string]string `json:"fields"`
	Notes  string            `json:"notes"`
}

func (h *Handler) RecordHistoryUpdate(c echo.Context) error {
	actor, patientID, err := h.resolveRequest(c)
	if err != nil {
		return err
	}

	var req historyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.svc.RecordHistoryUpdate(c.Request().Context(), actor, patientID, req.Fields, req.Notes)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListHistoryUpdates(c echo.Context) error {
	actor, patientID, err := h.resolveRequest(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListHistoryUpdates(c.Request().Context(), actor, patientID, emergencyParam(c), pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
