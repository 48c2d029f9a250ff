package sched

import "time"

// rateTracker computes a running average samples/sec over roughly the
// last second, the same running-rate figure sdr_thread.cpp prints in its
// stop-time stats line, exposed live via Scheduler.Rates.
type rateTracker struct {
	windowStart        time.Time
	inAccum, outAccum  int
	inRate, outRate     float64
}

func newRateTracker() *rateTracker {
	return &rateTracker{windowStart: time.Now()}
}

func (r *rateTracker) update(in, out int) {
	r.inAccum += in
	r.outAccum += out

	elapsed := time.Since(r.windowStart)
	if elapsed < time.Second {
		return
	}
	secs := elapsed.Seconds()
	r.inRate = float64(r.inAccum) / secs
	r.outRate = float64(r.outAccum) / secs
	r.inAccum = 0
	r.outAccum = 0
	r.windowStart = time.Now()
}

func (r *rateTracker) rates() (float64, float64) {
	return r.inRate, r.outRate
}
