package audit

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinrec/clinrec/internal/domain/access"
	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/pkg/pagination"
)

// ActorResolver normalizes caller-supplied identifiers to clinical profile
// ids before any policy evaluation. Implemented by the identity package.
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
	api.POST("/access/evaluate", h.EvaluateAccess)

	admin := api.Group("", auth.RequireRole(access.RoleAdmin))
	admin.GET("/audit-entries", h.ListEntries)
	admin.GET("/audit-entries/:id", h.GetEntry)
}

type evaluateRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Emergency bool      `json:"emergency"`
}

type evaluateResponse struct {
	Granted        bool   `json:"granted"`
	Reason         string `json:"reason"`
	RequiresReview bool   `json:"requires_review"`
}

func (h *Handler) EvaluateAccess(c echo.Context) error {
	ctx := c.Request().Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req evaluateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	actor, err := h.resolver.ResolveActor(ctx, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown actor identity")
	}
	patientID, err := h.resolver.ResolvePatientID(ctx, req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	dec, err := h.svc.EvaluateAccess(ctx, actor, patientID, req.Emergency)
	if err != nil {
		var wf *WriteFailure
		if errors.As(err, &wf) {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, evaluateResponse{
		Granted:        dec.Granted,
		Reason:         dec.Reason,
		RequiresReview: dec.RequiresReview,
	})
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEntry(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "audit entry not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEntries(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := map[string]string{}
	for _, key := range []string{"action", "reason", "actor", "patient", "requires-review"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}

	items, total, err := h.svc.SearchEntries(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
