package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/viksund/membership/internal/cache"
	"github.com/viksund/membership/internal/middleware"
	"github.com/viksund/membership/internal/model"
	"github.com/viksund/membership/internal/repository"
)

// AdminHandler exposes the event management surface: create and edit
// events, inspect registrations, and trigger the lottery draw.
type AdminHandler struct {
	Events      *repository.EventRepo
	Regs        *repository.RegistrationRepo
	Engine      Allocator
	Invalidator *cache.Invalidator
}

func NewAdminHandler(events *repository.EventRepo, regs *repository.RegistrationRepo, engine Allocator, inv *cache.Invalidator) *AdminHandler {
	return &AdminHandler{Events: events, Regs: regs, Engine: engine, Invalidator: inv}
}

// eventReq carries the writable event fields.  Timestamps are RFC3339
// strings; absent fields stay nil (meaning no restriction).
type eventReq struct {
	Title                    string  `json:"title"`
	Date                     string  `json:"date"`
	Capacity                 *int    `json:"capacity"`
	AllocationMethod         string  `json:"allocation_method"`
	RegistrationOpensAt      *string `json:"registration_opens_at"`
	RegistrationDeadline     *string `json:"registration_deadline"`
	CancellationAllowed      bool    `json:"cancellation_allowed"`
	CancellationDeadline     *string `json:"cancellation_deadline"`
	GuestAllowed             bool    `json:"guest_allowed"`
	MaxGuestsPerMember       int     `json:"max_guests_per_member"`
	GuestRegistrationOpensAt *string `json:"guest_registration_opens_at"`
	LotteryDate              *string `json:"lottery_date"`
	Status                   string  `json:"status"`
}

// toEvent validates the request and maps it onto a model.Event.  The
// returned string is an error message for the client, empty on
// success.
func (req *eventReq) toEvent(ev *model.Event) string {
	if req.Title == "" {
		return "title is required"
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return "date must be RFC3339"
	}
	switch model.AllocationMethod(req.AllocationMethod) {
	case model.AllocationFirstCome, model.AllocationLottery:
	default:
		return "allocation_method must be first_come or lottery"
	}
	switch model.EventStatus(req.Status) {
	case model.EventDraft, model.EventPublished, model.EventCancelled, model.EventCompleted:
	case "":
		req.Status = string(model.EventDraft)
	default:
		return "invalid status"
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		return "capacity must not be negative"
	}
	if req.MaxGuestsPerMember < 0 {
		return "max_guests_per_member must not be negative"
	}
	ev.Title = req.Title
	ev.Date = date.UTC()
	ev.Capacity = req.Capacity
	ev.AllocationMethod = model.AllocationMethod(req.AllocationMethod)
	ev.CancellationAllowed = req.CancellationAllowed
	ev.GuestAllowed = req.GuestAllowed
	ev.MaxGuestsPerMember = req.MaxGuestsPerMember
	ev.Status = model.EventStatus(req.Status)
	for _, f := range []struct {
		src  *string
		dst  **time.Time
		name string
	}{
		{req.RegistrationOpensAt, &ev.RegistrationOpensAt, "registration_opens_at"},
		{req.RegistrationDeadline, &ev.RegistrationDeadline, "registration_deadline"},
		{req.CancellationDeadline, &ev.CancellationDeadline, "cancellation_deadline"},
		{req.GuestRegistrationOpensAt, &ev.GuestRegistrationOpensAt, "guest_registration_opens_at"},
		{req.LotteryDate, &ev.LotteryDate, "lottery_date"},
	} {
		if f.src == nil {
			*f.dst = nil
			continue
		}
		t, err := time.Parse(time.RFC3339, *f.src)
		if err != nil {
			return f.name + " must be RFC3339"
		}
		u := t.UTC()
		*f.dst = &u
	}
	return ""
}

// CreateEvent handles POST /v1/admin/events.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ev := &model.Event{ID: uuid.NewString()}
	if msg := req.toEvent(ev); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Events.Create(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}
	h.Invalidator.InvalidateEvent(c.Request().Context(), ev.ID)
	return c.JSON(http.StatusCreated, echo.Map{"event": newEventResp(ev)})
}

// UpdateEvent handles PUT /v1/admin/events/:id.  Seat counters and the
// lottery flag cannot be edited here.
func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ev := &model.Event{ID: c.Param("id")}
	if msg := req.toEvent(ev); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	err := h.Events.Update(c.Request().Context(), ev)
	if err == repository.ErrEventNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update event"})
	}
	h.Invalidator.InvalidateEvent(c.Request().Context(), ev.ID)
	updated, err := h.Events.GetByID(c.Request().Context(), ev.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": newEventResp(updated)})
}

// ListEvents handles GET /v1/admin/events and includes drafts.
func (h *AdminHandler) ListEvents(c echo.Context) error {
	events, err := h.Events.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	items := make([]eventResp, 0, len(events))
	for _, ev := range events {
		items = append(items, newEventResp(ev))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// EventRegistrations handles GET /v1/admin/events/:id/registrations.
func (h *AdminHandler) EventRegistrations(c echo.Context) error {
	eventID := c.Param("id")
	if _, err := h.Events.GetByID(c.Request().Context(), eventID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	items, err := h.Regs.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registrations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// RunLottery handles POST /v1/admin/events/:id/lottery.
func (h *AdminHandler) RunLottery(c echo.Context) error {
	result, err := h.Engine.RunLottery(c.Request().Context(), c.Param("id"), middleware.Role(c))
	if err != nil {
		return allocationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":      result.Total,
		"registered": result.Registered,
		"waitlisted": result.Waitlisted,
	})
}
