package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/viksund/membership/internal/cache"
	"github.com/viksund/membership/internal/model"
	"github.com/viksund/membership/internal/repository"
)

// EventHandler serves the member-facing event views.  Responses are
// cached in Redis under the keys the allocation engine invalidates
// after every seat mutation, so members see fresh counts without a
// DB hit on every request.
type EventHandler struct {
	Events *repository.EventRepo
	Views  *cache.Views
}

func NewEventHandler(events *repository.EventRepo, views *cache.Views) *EventHandler {
	return &EventHandler{Events: events, Views: views}
}

// eventResp is the public JSON shape of an event.
type eventResp struct {
	ID                       string  `json:"id"`
	Title                    string  `json:"title"`
	Date                     string  `json:"date"`
	Capacity                 *int    `json:"capacity"`
	AllocationMethod         string  `json:"allocation_method"`
	RegistrationOpensAt      *string `json:"registration_opens_at,omitempty"`
	RegistrationDeadline     *string `json:"registration_deadline,omitempty"`
	CancellationAllowed      bool    `json:"cancellation_allowed"`
	CancellationDeadline     *string `json:"cancellation_deadline,omitempty"`
	GuestAllowed             bool    `json:"guest_allowed"`
	MaxGuestsPerMember       int     `json:"max_guests_per_member"`
	GuestRegistrationOpensAt *string `json:"guest_registration_opens_at,omitempty"`
	LotteryDate              *string `json:"lottery_date,omitempty"`
	LotteryCompleted         bool    `json:"lottery_completed"`
	ConfirmedSeats           int     `json:"confirmed_seats"`
	WaitlistedSeats          int     `json:"waitlisted_seats"`
	AvailableSeats           *int    `json:"available_seats"`
	Status                   string  `json:"status"`
}

func newEventResp(ev *model.Event) eventResp {
	resp := eventResp{
		ID:                       ev.ID,
		Title:                    ev.Title,
		Date:                     ev.Date.UTC().Format(time.RFC3339),
		Capacity:                 ev.Capacity,
		AllocationMethod:         string(ev.AllocationMethod),
		RegistrationOpensAt:      rfc3339Ptr(ev.RegistrationOpensAt),
		RegistrationDeadline:     rfc3339Ptr(ev.RegistrationDeadline),
		CancellationAllowed:      ev.CancellationAllowed,
		CancellationDeadline:     rfc3339Ptr(ev.CancellationDeadline),
		GuestAllowed:             ev.GuestAllowed,
		MaxGuestsPerMember:       ev.MaxGuestsPerMember,
		GuestRegistrationOpensAt: rfc3339Ptr(ev.GuestRegistrationOpensAt),
		LotteryDate:              rfc3339Ptr(ev.LotteryDate),
		LotteryCompleted:         ev.LotteryCompleted,
		ConfirmedSeats:           ev.ConfirmedSeats,
		WaitlistedSeats:          ev.WaitlistedSeats,
		Status:                   string(ev.Status),
	}
	if ev.Capacity != nil {
		avail := *ev.Capacity - ev.ConfirmedSeats
		if avail < 0 {
			avail = 0
		}
		resp.AvailableSeats = &avail
	}
	return resp
}

func rfc3339Ptr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// List handles GET /v1/events and returns published events only.
func (h *EventHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if body := h.Views.GetList(ctx); body != "" {
		return c.JSONBlob(http.StatusOK, []byte(body))
	}
	events, err := h.Events.ListPublished(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	items := make([]eventResp, 0, len(events))
	for _, ev := range events {
		items = append(items, newEventResp(ev))
	}
	body, err := json.Marshal(echo.Map{"items": items})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render events"})
	}
	h.Views.SetList(ctx, string(body))
	return c.JSONBlob(http.StatusOK, body)
}

// Get handles GET /v1/events/:id.  Non-published events look like
// they do not exist to members.
func (h *EventHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if body := h.Views.GetEvent(ctx, id); body != "" {
		return c.JSONBlob(http.StatusOK, []byte(body))
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err == repository.ErrEventNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	if ev.Status != model.EventPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	body, err := json.Marshal(echo.Map{"event": newEventResp(ev)})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render event"})
	}
	h.Views.SetEvent(ctx, id, string(body))
	return c.JSONBlob(http.StatusOK, body)
}
