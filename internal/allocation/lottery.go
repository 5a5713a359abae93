package allocation

import (
	"context"

	"github.com/viksund/membership/internal/model"
)

// LotteryResult summarizes a completed draw.
type LotteryResult struct {
	Total      int // pending registrations entered into the draw
	Registered int // registrations that won confirmed seats
	Waitlisted int // registrations placed on the waitlist
}

// RunLottery performs the one-time randomized admission pass for a
// lottery event.  Pending registrations are shuffled uniformly
// (Fisher-Yates via the injected random source) and walked in
// shuffled order, confirming each party whose seats still fit within
// capacity and waitlisting the rest.  Both seat counters are then
// overwritten wholesale with the freshly computed totals and the
// lottery_completed flag is set.
//
// A second invocation returns ErrLotteryAlreadyCompleted and changes
// nothing: re-randomizing would betray results already communicated
// to members.
func (e *Engine) RunLottery(ctx context.Context, eventID, requesterRole string) (*LotteryResult, error) {
	if requesterRole != model.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	var result LotteryResult
	err := e.store.InTx(ctx, func(tx Tx) error {
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.AllocationMethod != model.AllocationLottery {
			return ErrNotALotteryEvent
		}
		if ev.LotteryCompleted {
			return ErrLotteryAlreadyCompleted
		}

		pending, err := tx.PendingRegistrations(ctx, eventID)
		if err != nil {
			return err
		}
		drawn := make([]*model.Registration, len(pending))
		copy(drawn, pending)
		e.shuffle(drawn)

		confirmedSeats := 0
		waitlistedSeats := 0
		result = LotteryResult{Total: len(drawn)}
		for _, reg := range drawn {
			// Guests are normally blocked before the draw, but the
			// seat math must hold even if a row carries guests.
			need := reg.Seats()
			status := model.StatusWaitlisted
			if ev.Capacity == nil || confirmedSeats+need <= *ev.Capacity {
				status = model.StatusRegistered
				confirmedSeats += need
				result.Registered++
			} else {
				waitlistedSeats += need
				result.Waitlisted++
			}
			if err := tx.UpdateStatus(ctx, reg.ID, status, nil); err != nil {
				return err
			}
			reg.Status = status
		}
		return tx.CompleteLottery(ctx, eventID, confirmedSeats, waitlistedSeats)
	})
	if err != nil {
		return nil, storeErr("run lottery", err)
	}
	e.invalidate(ctx, eventID)
	return &result, nil
}

// shuffle permutes regs uniformly at random.  The engine's random
// source is guarded because engine methods may run concurrently.
func (e *Engine) shuffle(regs []*model.Registration) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	for i := len(regs) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		regs[i], regs[j] = regs[j], regs[i]
	}
}
