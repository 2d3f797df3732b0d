package scheduler

import (
	"context"
	"time"
)

const (
	// maxSleepCap bounds a single sleep so clock changes are noticed.
	maxSleepCap = 60 * time.Second
	// queueSize is the buffer of the add and remove channels.
	queueSize = 64
)

// timeline sleeps until the next pending event and hands it to onFire.
// All heap access happens on its own goroutine.
type timeline struct {
	// addCh receives events to schedule.
	addCh chan event
	// removeCh receives alarm ids to unschedule.
	removeCh chan string
	// ctx stops the goroutine.
	ctx context.Context //nolint:containedctx // Lifetime of the background goroutine.
}

// newTimeline starts the timeline goroutine. It exits when ctx is cancelled.
func newTimeline(ctx context.Context, onFire func(id string)) *timeline {
	t := &timeline{
		addCh:    make(chan event, queueSize),
		removeCh: make(chan string, queueSize),
		ctx:      ctx,
	}

	go t.run(onFire)

	return t
}

// add schedules an event.
func (t *timeline) add(e event) {
	select {
	case t.addCh <- e:
	case <-t.ctx.Done():
	}
}

// remove unschedules the alarm.
func (t *timeline) remove(id string) {
	select {
	case t.removeCh <- id:
	case <-t.ctx.Done():
	}
}

// run is the active-object loop.
// Fired events are never pushed back: every alarm fires at most once.
func (t *timeline) run(onFire func(id string)) {
	h := &eventHeap{}

	var timer *time.Timer

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}

		if h.Len() == 0 {
			return nil
		}

		wait := min(max(time.Until((*h)[0].fireAt), 0), maxSleepCap)
		timer = time.NewTimer(wait)

		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-t.ctx.Done():
			return
		case e := <-t.addCh:
			h.push(e)

			timerCh = resetTimer()
		case id := <-t.removeCh:
			h.remove(id)

			timerCh = resetTimer()
		case <-timerCh:
			now := time.Now()

			for h.Len() > 0 && !(*h)[0].fireAt.After(now) {
				onFire(h.pop().id)
			}

			timerCh = resetTimer()
		}
	}
}
