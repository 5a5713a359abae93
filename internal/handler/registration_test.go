package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viksund/membership/internal/allocation"
	"github.com/viksund/membership/internal/model"
)

// fakeAllocator lets each test script the engine's answer.
type fakeAllocator struct {
	register    func(eventID, memberID string) (*model.Registration, error)
	cancel      func(eventID, memberID string) error
	addGuest    func(eventID, memberID string) (*model.Registration, error)
	removeGuest func(eventID, memberID string) (*model.Registration, error)
	runLottery  func(eventID, role string) (*allocation.LotteryResult, error)
}

func (f *fakeAllocator) Register(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	return f.register(eventID, memberID)
}

func (f *fakeAllocator) Cancel(ctx context.Context, eventID, memberID string) error {
	return f.cancel(eventID, memberID)
}

func (f *fakeAllocator) AddGuest(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	return f.addGuest(eventID, memberID)
}

func (f *fakeAllocator) RemoveGuest(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	return f.removeGuest(eventID, memberID)
}

func (f *fakeAllocator) RunLottery(ctx context.Context, eventID, role string) (*allocation.LotteryResult, error) {
	return f.runLottery(eventID, role)
}

// call runs a handler against a synthetic request with the given
// authenticated member in context.
func call(t *testing.T, h echo.HandlerFunc, method, eventID, memberID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(eventID)
	if memberID != "" {
		c.Set("member_id", memberID)
	}
	require.NoError(t, h(c))
	return rec
}

func TestRegisterHandlerCreated(t *testing.T) {
	fake := &fakeAllocator{
		register: func(eventID, memberID string) (*model.Registration, error) {
			assert.Equal(t, "ev-1", eventID)
			assert.Equal(t, "alice", memberID)
			return &model.Registration{
				ID: "reg-1", EventID: eventID, MemberID: memberID,
				Status: model.StatusRegistered, GuestCount: 2,
			}, nil
		},
	}
	h := NewRegistrationHandler(fake, nil)

	rec := call(t, h.Register, http.MethodPost, "ev-1", "alice")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"registration_id":"reg-1"`)
	assert.Contains(t, rec.Body.String(), `"status":"registered"`)
	assert.Contains(t, rec.Body.String(), `"seats":3`)
}

func TestRegisterHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unauthenticated", allocation.ErrUnauthenticated, http.StatusUnauthorized},
		{"event not found", allocation.ErrEventNotFound, http.StatusNotFound},
		{"already registered", allocation.ErrAlreadyRegistered, http.StatusConflict},
		{"not open yet", allocation.ErrRegistrationNotOpenYet, http.StatusBadRequest},
		{"closed", allocation.ErrRegistrationClosed, http.StatusBadRequest},
		{"storage failure", &allocation.StorageError{Op: "register", Err: errors.New("down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeAllocator{
				register: func(eventID, memberID string) (*model.Registration, error) {
					return nil, tc.err
				},
			}
			h := NewRegistrationHandler(fake, nil)
			rec := call(t, h.Register, http.MethodPost, "ev-1", "alice")
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestStorageErrorDoesNotLeakDetails(t *testing.T) {
	fake := &fakeAllocator{
		register: func(eventID, memberID string) (*model.Registration, error) {
			return nil, &allocation.StorageError{Op: "register", Err: errors.New("dial tcp 10.0.0.5:3306: timeout")}
		},
	}
	h := NewRegistrationHandler(fake, nil)

	rec := call(t, h.Register, http.MethodPost, "ev-1", "alice")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestCancelHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeAllocator{
			cancel: func(eventID, memberID string) error { return nil },
		}
		h := NewRegistrationHandler(fake, nil)
		rec := call(t, h.Cancel, http.MethodDelete, "ev-1", "alice")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("deadline passed", func(t *testing.T) {
		fake := &fakeAllocator{
			cancel: func(eventID, memberID string) error {
				return allocation.ErrCancellationDeadlinePassed
			},
		}
		h := NewRegistrationHandler(fake, nil)
		rec := call(t, h.Cancel, http.MethodDelete, "ev-1", "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no registration", func(t *testing.T) {
		fake := &fakeAllocator{
			cancel: func(eventID, memberID string) error {
				return allocation.ErrNoRegistrationFound
			},
		}
		h := NewRegistrationHandler(fake, nil)
		rec := call(t, h.Cancel, http.MethodDelete, "ev-1", "alice")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGuestHandlers(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		fake := &fakeAllocator{
			addGuest: func(eventID, memberID string) (*model.Registration, error) {
				return &model.Registration{
					ID: "reg-1", EventID: eventID, MemberID: memberID,
					Status: model.StatusRegistered, GuestCount: 1,
				}, nil
			},
		}
		h := NewRegistrationHandler(fake, nil)
		rec := call(t, h.AddGuest, http.MethodPost, "ev-1", "alice")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"guest_count":1`)
	})

	t.Run("add when full", func(t *testing.T) {
		fake := &fakeAllocator{
			addGuest: func(eventID, memberID string) (*model.Registration, error) {
				return nil, allocation.ErrEventFull
			},
		}
		h := NewRegistrationHandler(fake, nil)
		rec := call(t, h.AddGuest, http.MethodPost, "ev-1", "alice")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("remove with none left", func(t *testing.T) {
		fake := &fakeAllocator{
			removeGuest: func(eventID, memberID string) (*model.Registration, error) {
				return nil, allocation.ErrNoGuestsToRemove
			},
		}
		h := NewRegistrationHandler(fake, nil)
		rec := call(t, h.RemoveGuest, http.MethodDelete, "ev-1", "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLotteryHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeAllocator{
			runLottery: func(eventID, role string) (*allocation.LotteryResult, error) {
				assert.Equal(t, model.RoleAdmin, role)
				return &allocation.LotteryResult{Total: 5, Registered: 2, Waitlisted: 3}, nil
			},
		}
		h := NewAdminHandler(nil, nil, fake, nil)

		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("ev-1")
		c.Set("member_id", "admin-1")
		c.Set("role", model.RoleAdmin)
		require.NoError(t, h.RunLottery(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"registered":2`)
		assert.Contains(t, rec.Body.String(), `"waitlisted":3`)
	})

	t.Run("second draw rejected", func(t *testing.T) {
		fake := &fakeAllocator{
			runLottery: func(eventID, role string) (*allocation.LotteryResult, error) {
				return nil, allocation.ErrLotteryAlreadyCompleted
			},
		}
		h := NewAdminHandler(nil, nil, fake, nil)

		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("ev-1")
		c.Set("role", model.RoleAdmin)
		require.NoError(t, h.RunLottery(c))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
