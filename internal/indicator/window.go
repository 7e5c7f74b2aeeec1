package indicator

// rollingWindow holds the most recent period samples in a preallocated
// circular buffer.
//
// The mean is taken relative to the oldest sample in the window, so a window
// of identical samples averages to exactly that sample. A running sum would
// drift for prices such as 0.1 that have no exact binary representation.
type rollingWindow struct {
	period int
	buf    []float64
	idx    int // next write position
	count  int // samples held, capped at period
}

func newRollingWindow(period int) *rollingWindow {
	return &rollingWindow{
		period: period,
		buf:    make([]float64, period),
	}
}

func (w *rollingWindow) push(v float64) {
	w.buf[w.idx] = v
	w.idx = (w.idx + 1) % w.period
	if w.count < w.period {
		w.count++
	}
}

func (w *rollingWindow) ready() bool { return w.count >= w.period }

func (w *rollingWindow) reset() {
	w.idx = 0
	w.count = 0
}

// mean returns the average of a full window. Only valid when ready().
func (w *rollingWindow) mean() float64 {
	ref := w.buf[w.idx] // oldest sample once the buffer has wrapped
	var dev float64
	for _, v := range w.buf {
		dev += v - ref
	}
	return ref + dev/float64(w.period)
}

// rollingMean maps vals to the mean of each trailing window. An absent input
// restarts the window, so every output covering it is absent as well.
func rollingMean(vals []Value, period int) []Value {
	out := make([]Value, len(vals))
	w := newRollingWindow(period)
	for i, v := range vals {
		if !v.OK {
			w.reset()
			continue
		}
		w.push(v.V)
		if w.ready() {
			out[i] = Some(w.mean())
		}
	}
	return out
}
