package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/viksund/membership/internal/allocation"
	"github.com/viksund/membership/internal/middleware"
	"github.com/viksund/membership/internal/model"
	"github.com/viksund/membership/internal/repository"
)

// Allocator is the slice of the allocation engine the registration
// handlers need.  Taking an interface keeps the handlers testable
// against a fake engine.
type Allocator interface {
	Register(ctx context.Context, eventID, memberID string) (*model.Registration, error)
	Cancel(ctx context.Context, eventID, memberID string) error
	AddGuest(ctx context.Context, eventID, memberID string) (*model.Registration, error)
	RemoveGuest(ctx context.Context, eventID, memberID string) (*model.Registration, error)
	RunLottery(ctx context.Context, eventID, requesterRole string) (*allocation.LotteryResult, error)
}

// RegistrationHandler exposes the member-facing allocation
// operations.  All seat accounting happens inside the engine; the
// handler only translates between HTTP and the engine's contract.
type RegistrationHandler struct {
	Engine Allocator
	Regs   *repository.RegistrationRepo
}

func NewRegistrationHandler(engine Allocator, regs *repository.RegistrationRepo) *RegistrationHandler {
	if engine == nil {
		panic("nil engine passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Engine: engine, Regs: regs}
}

// registrationResp is the JSON shape returned for a registration.
type registrationResp struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	Status         string `json:"status"`
	GuestCount     int    `json:"guest_count"`
	Seats          int    `json:"seats"`
}

func newRegistrationResp(reg *model.Registration) registrationResp {
	return registrationResp{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		Status:         string(reg.Status),
		GuestCount:     reg.GuestCount,
		Seats:          reg.Seats(),
	}
}

// Register handles POST /v1/events/:id/registration.
func (h *RegistrationHandler) Register(c echo.Context) error {
	eventID := c.Param("id")
	reg, err := h.Engine.Register(c.Request().Context(), eventID, middleware.MemberID(c))
	if err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"registration": newRegistrationResp(reg)})
}

// Cancel handles DELETE /v1/events/:id/registration.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	eventID := c.Param("id")
	if err := h.Engine.Cancel(c.Request().Context(), eventID, middleware.MemberID(c)); err != nil {
		return allocationError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddGuest handles POST /v1/events/:id/registration/guests.
func (h *RegistrationHandler) AddGuest(c echo.Context) error {
	eventID := c.Param("id")
	reg, err := h.Engine.AddGuest(c.Request().Context(), eventID, middleware.MemberID(c))
	if err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registration": newRegistrationResp(reg)})
}

// RemoveGuest handles DELETE /v1/events/:id/registration/guests.
func (h *RegistrationHandler) RemoveGuest(c echo.Context) error {
	eventID := c.Param("id")
	reg, err := h.Engine.RemoveGuest(c.Request().Context(), eventID, middleware.MemberID(c))
	if err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registration": newRegistrationResp(reg)})
}

// MyRegistrations handles GET /v1/my-registrations.
func (h *RegistrationHandler) MyRegistrations(c echo.Context) error {
	memberID := middleware.MemberID(c)
	if memberID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Regs.ListByMember(c.Request().Context(), memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registrations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// allocationError maps an engine error to one HTTP response.  Every
// validation kind keeps its own message; storage failures collapse
// into a single 500 without leaking internals.
func allocationError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, allocation.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, allocation.ErrEventNotFound),
		errors.Is(err, allocation.ErrNoRegistrationFound):
		status = http.StatusNotFound
	case errors.Is(err, allocation.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, allocation.ErrAlreadyRegistered),
		errors.Is(err, allocation.ErrEventFull),
		errors.Is(err, allocation.ErrLotteryAlreadyCompleted):
		status = http.StatusConflict
	case errors.Is(err, allocation.ErrRegistrationNotOpenYet),
		errors.Is(err, allocation.ErrRegistrationClosed),
		errors.Is(err, allocation.ErrCancellationNotAllowed),
		errors.Is(err, allocation.ErrCancellationDeadlinePassed),
		errors.Is(err, allocation.ErrGuestsNotAllowed),
		errors.Is(err, allocation.ErrGuestRegistrationNotOpenYet),
		errors.Is(err, allocation.ErrGuestLimitReached),
		errors.Is(err, allocation.ErrNoGuestsToRemove),
		errors.Is(err, allocation.ErrNotALotteryEvent):
		status = http.StatusBadRequest
	default:
		// Storage failures: the operation is atomic, so the caller
		// may retry safely.
		return c.JSON(status, echo.Map{"error": "storage error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
