package allocation

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viksund/membership/internal/model"
)

func lotteryEvent(capacity *int) *model.Event {
	ev := testEvent(capacity)
	ev.AllocationMethod = model.AllocationLottery
	return ev
}

func TestRunLotteryRequiresAdmin(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(intp(2)))
	eng := newTestEngine(store)

	_, err := eng.RunLottery(context.Background(), "ev-1", model.RoleMember)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = eng.RunLottery(context.Background(), "ev-1", "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRunLotteryRejectsFirstComeEvent(t *testing.T) {
	store := newFakeStore()
	store.putEvent(testEvent(intp(2)))
	eng := newTestEngine(store)

	_, err := eng.RunLottery(context.Background(), "ev-1", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotALotteryEvent)
}

func TestRunLotteryUnknownEvent(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(store)

	_, err := eng.RunLottery(context.Background(), "nope", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRunLotterySplitsPendingByCapacity(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(intp(2)))
	eng := newTestEngine(store)
	ctx := context.Background()

	members := []string{"alice", "bob", "carol", "dave", "erin"}
	for _, m := range members {
		_, err := eng.Register(ctx, "ev-1", m)
		require.NoError(t, err)
	}

	result, err := eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 2, result.Registered)
	assert.Equal(t, 3, result.Waitlisted)

	registered, waitlisted, pending := 0, 0, 0
	for i := 1; i <= 5; i++ {
		reg := store.registration(fmt.Sprintf("reg-%02d", i))
		switch reg.Status {
		case model.StatusRegistered:
			registered++
		case model.StatusWaitlisted:
			waitlisted++
		case model.StatusPending:
			pending++
		}
	}
	assert.Equal(t, 2, registered)
	assert.Equal(t, 3, waitlisted)
	assert.Zero(t, pending, "no registration may remain pending after the draw")

	ev := store.event("ev-1")
	assert.True(t, ev.LotteryCompleted)
	assert.Equal(t, 2, ev.ConfirmedSeats)
	assert.Equal(t, 3, ev.WaitlistedSeats)
}

func TestRunLotteryTwiceRejected(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(intp(2)))
	eng := newTestEngine(store)
	ctx := context.Background()

	for _, m := range []string{"alice", "bob", "carol"} {
		_, err := eng.Register(ctx, "ev-1", m)
		require.NoError(t, err)
	}
	_, err := eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
	require.NoError(t, err)

	before := store.event("ev-1")
	_, err = eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrLotteryAlreadyCompleted)

	after := store.event("ev-1")
	assert.Equal(t, before.ConfirmedSeats, after.ConfirmedSeats)
	assert.Equal(t, before.WaitlistedSeats, after.WaitlistedSeats)
}

func TestRunLotteryUnlimitedCapacityConfirmsEveryone(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(nil))
	eng := newTestEngine(store)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := eng.Register(ctx, "ev-1", fmt.Sprintf("member-%02d", i))
		require.NoError(t, err)
	}
	result, err := eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Registered)
	assert.Zero(t, result.Waitlisted)
	assert.Equal(t, 10, store.event("ev-1").ConfirmedSeats)
}

func TestRunLotteryNoPendingRegistrations(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(intp(2)))
	eng := newTestEngine(store)

	result, err := eng.RunLottery(context.Background(), "ev-1", model.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, result.Total)

	ev := store.event("ev-1")
	assert.True(t, ev.LotteryCompleted)
	assert.Zero(t, ev.ConfirmedSeats)
	assert.Zero(t, ev.WaitlistedSeats)
}

func TestRunLotteryIsDeterministicForSeed(t *testing.T) {
	draw := func(seed int64) []model.RegistrationStatus {
		store := newFakeStore()
		store.putEvent(lotteryEvent(intp(3)))
		eng := newTestEngine(store, WithRand(rand.New(rand.NewSource(seed))))
		ctx := context.Background()
		for i := 0; i < 8; i++ {
			_, err := eng.Register(ctx, "ev-1", fmt.Sprintf("member-%02d", i))
			require.NoError(t, err)
		}
		_, err := eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
		require.NoError(t, err)
		statuses := make([]model.RegistrationStatus, 8)
		for i := range statuses {
			statuses[i] = store.registration(fmt.Sprintf("reg-%02d", i+1)).Status
		}
		return statuses
	}

	assert.Equal(t, draw(42), draw(42), "same seed must reproduce the draw")
}

func TestRunLotteryCountsPartySeats(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(intp(3)))
	eng := newTestEngine(store)
	ctx := context.Background()

	// A pending row carrying guests must consume all its seats when
	// drawn, never just one.
	store.putRegistration(&model.Registration{
		ID: "reg-big", EventID: "ev-1", MemberID: "alice",
		Status: model.StatusPending, GuestCount: 2, RegisteredAt: baseTime,
	})
	store.putRegistration(&model.Registration{
		ID: "reg-solo", EventID: "ev-1", MemberID: "bob",
		Status: model.StatusPending, GuestCount: 0, RegisteredAt: baseTime,
	})

	result, err := eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)

	ev := store.event("ev-1")
	big := store.registration("reg-big")
	solo := store.registration("reg-solo")
	if big.Status == model.StatusRegistered {
		// The 3-seat party won: bob's single seat no longer fits.
		assert.Equal(t, model.StatusWaitlisted, solo.Status)
		assert.Equal(t, 3, ev.ConfirmedSeats)
		assert.Equal(t, 1, ev.WaitlistedSeats)
	} else {
		assert.Equal(t, model.StatusRegistered, solo.Status)
		assert.Equal(t, 1, ev.ConfirmedSeats)
		assert.Equal(t, 3, ev.WaitlistedSeats)
	}
}

func TestRegistrationAfterDrawIsFirstCome(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(intp(1)))
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ev-1", "alice")
	require.NoError(t, err)
	_, err = eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
	require.NoError(t, err)

	// The draw filled the only seat; late sign-ups join the waitlist
	// directly instead of a second pending pool.
	late, err := eng.Register(ctx, "ev-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitlisted, late.Status)
}

func TestGuestsOpenAfterDraw(t *testing.T) {
	store := newFakeStore()
	store.putEvent(lotteryEvent(intp(5)))
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ev-1", "alice")
	require.NoError(t, err)
	_, err = eng.AddGuest(ctx, "ev-1", "alice")
	require.ErrorIs(t, err, ErrGuestRegistrationNotOpenYet)

	_, err = eng.RunLottery(ctx, "ev-1", model.RoleAdmin)
	require.NoError(t, err)

	reg, err := eng.AddGuest(ctx, "ev-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.GuestCount)
	assert.Equal(t, 2, store.event("ev-1").ConfirmedSeats)
}
