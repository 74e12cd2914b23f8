package host

// latency averages round trip times over fixed windows.
type latency struct {
	every int
	n     int
	sum   int64
}

// add counts one sample in ms and returns the window average when a
// window is complete.
func (l *latency) add(ms int32) (float64, bool) {
	if l.every <= 0 {
		return 0, false
	}
	l.n++
	l.sum += int64(ms)
	if l.n < l.every {
		return 0, false
	}
	avg := float64(l.sum) / float64(l.n)
	l.n, l.sum = 0, 0
	return avg, true
}
