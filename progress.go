package upxfer

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// finalizingProgress is the progress value that is held once every byte
	// is sent and the parts are being assembled
	finalizingProgress = 99
	// finishedProgress is the progress value that is used when
	// the upload is finished (100%)
	finishedProgress = 100
)

// progressAggregator merges the committed parts and the in-flight bytes of
// the concurrent part uploads into one percentage for the active file.
//
// Emitted percentages never decrease and 100 is emitted once, by finish.
// Events are delivered one at a time, outside of the state lock, so the
// receiver may close the aggregator.
type progressAggregator struct {
	// emitMu serializes the deliveries, it is always taken before mu
	emitMu sync.Mutex

	mu        sync.Mutex
	totalSize int64
	committed int64
	inFlight  map[int32]int64
	last      int
	closed    bool
	finished  bool
	startAt   time.Time

	// limiter throttles the events of in-flight ticks, nil when disabled
	limiter *rate.Limiter

	notify func(progress Progress)
}

func newProgressAggregator(
	totalSize int64,
	refreshInterval time.Duration,
	notify func(progress Progress),
) (a *progressAggregator) {
	a = &progressAggregator{
		totalSize: totalSize,
		inFlight:  make(map[int32]int64),
		last:      -1,
		startAt:   time.Now(),
		notify:    notify,
	}
	if refreshInterval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(refreshInterval), 1)
	}
	return
}

// update records the bytes sent so far for an in-flight part.
func (a *progressAggregator) update(number int32, sent int64) {
	a.emit(func() (progress Progress, ok bool) {
		if a.closed || a.finished {
			return
		}
		a.inFlight[number] = sent
		if a.limiter != nil && !a.limiter.Allow() {
			return
		}
		return a.nextLocked(false)
	})
}

// commit moves a part from in flight to committed and always emits.
func (a *progressAggregator) commit(number int32, size int64) {
	a.emit(func() (progress Progress, ok bool) {
		if a.closed || a.finished {
			return
		}
		delete(a.inFlight, number)
		a.committed += size
		return a.nextLocked(true)
	})
}

// reset drops the in-flight bytes of a part that will be sent again.
func (a *progressAggregator) reset(number int32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inFlight, number)
}

// finish emits 100%, once, even when closed.
func (a *progressAggregator) finish() {
	a.emit(func() (progress Progress, ok bool) {
		if a.finished {
			return
		}
		a.finished = true
		a.inFlight = make(map[int32]int64)
		a.committed = a.totalSize
		a.last = finishedProgress
		return a.snapshotLocked(finishedProgress), true
	})
}

// close stops the ticks and commits. An event already being delivered is
// not waited for.
func (a *progressAggregator) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

// emit runs next under the state lock and delivers the progress it returns
// once the state lock is released.
func (a *progressAggregator) emit(next func() (Progress, bool)) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	progress, ok := next()
	a.mu.Unlock()
	if ok {
		a.notify(progress)
	}
}

func (a *progressAggregator) transferredLocked() (transferred int64) {
	transferred = a.committed
	for _, sent := range a.inFlight {
		transferred += sent
	}
	return min(transferred, a.totalSize)
}

func (a *progressAggregator) percentageLocked() (percentage int) {
	if a.totalSize <= 0 {
		return 0
	}
	percentage = int(math.Round(float64(a.transferredLocked()) / float64(a.totalSize) * 100))
	return min(percentage, finalizingProgress)
}

// nextLocked returns the progress to emit. Ticks only emit when the value
// grows, commits emit even when it stays the same.
func (a *progressAggregator) nextLocked(always bool) (progress Progress, ok bool) {
	percentage := a.percentageLocked()
	if percentage <= a.last {
		if !always {
			return
		}
		percentage = a.last
	}
	a.last = percentage
	return a.snapshotLocked(percentage), true
}

func (a *progressAggregator) snapshotLocked(percentage int) Progress {
	transferred := a.transferredLocked()
	duration := time.Since(a.startAt)
	return Progress{
		Percentage:      percentage,
		TransferredSize: transferred,
		TotalSize:       a.totalSize,
		Duration:        duration,
		Speed:           transferred / int64(math.Max(1, duration.Seconds())),
	}
}
