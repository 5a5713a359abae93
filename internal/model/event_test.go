package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventCapacityChecks(t *testing.T) {
	capacity := 3
	ev := &Event{Capacity: &capacity, ConfirmedSeats: 2}

	assert.False(t, ev.Full())
	assert.True(t, ev.SeatsFit(1))
	assert.False(t, ev.SeatsFit(2))

	ev.ConfirmedSeats = 3
	assert.True(t, ev.Full())
	assert.False(t, ev.SeatsFit(1))
	assert.True(t, ev.SeatsFit(0))
}

func TestUnlimitedEventNeverFull(t *testing.T) {
	ev := &Event{ConfirmedSeats: 1000}
	assert.False(t, ev.Full())
	assert.True(t, ev.SeatsFit(1000000))
}

func TestLotteryPending(t *testing.T) {
	ev := &Event{AllocationMethod: AllocationLottery}
	assert.True(t, ev.LotteryPending())

	ev.LotteryCompleted = true
	assert.False(t, ev.LotteryPending())

	assert.False(t, (&Event{AllocationMethod: AllocationFirstCome}).LotteryPending())
}

func TestRegistrationSeats(t *testing.T) {
	assert.Equal(t, 1, (&Registration{}).Seats())
	assert.Equal(t, 4, (&Registration{GuestCount: 3}).Seats())
}

func TestStatusActive(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusRegistered.Active())
	assert.True(t, StatusWaitlisted.Active())
	assert.False(t, StatusCancelled.Active())
}
