package host

import (
	"context"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/monitoring"
	"github.com/sobelfarm/sobelfarm/pkg/present"
	"github.com/sobelfarm/sobelfarm/pkg/reorder"
)

const (
	keyWait   = time.Millisecond
	idleCheck = 50 * time.Millisecond
)

type receiver struct {
	*Host

	buf      *reorder.Buffer[uint64, frame.Frame]
	moved    time.Time
	total    uint64
	finished bool
	stats    latency
}

// receive is the reassembly loop.
func (h *Host) receive(ctx context.Context, results <-chan []byte) error {
	r := &receiver{
		Host:  h,
		buf:   reorder.New[uint64, frame.Frame](0),
		moved: time.Now(),
		stats: latency{every: h.conf.StatsEvery},
	}
	tick := time.NewTicker(idleCheck)
	defer tick.Stop()

	for {
		select {
		case data := <-results:
			r.onResult(data)
		case seq := <-h.dispatcher.Forfeits():
			r.buf.Skip(seq)
			r.drain()
		case total := <-h.eos:
			r.total, r.finished = total, true
		case <-tick.C:
			r.checkStall()
		case <-ctx.Done():
			return ctx.Err()
		}

		if key, ok := h.presenter.PollExitKey(keyWait); ok && key == present.KeyEsc {
			h.log.Info().Msg("exit key")
			return nil
		}
		if r.finished && r.buf.Next() >= r.total {
			h.log.Info().Msgf("all %d frames are done", r.total)
			return nil
		}
	}
}

func (r *receiver) onResult(data []byte) {
	res, err := r.codec.DecodeResult(data)
	if err != nil {
		r.log.Warn().Err(err).Msg("bad result")
		monitoring.Dropped.WithLabelValues(monitoring.ReasonMalformed).Inc()
		return
	}
	monitoring.Received.Inc()

	ms := r.dispatcher.SendTime() - res.SendTime
	monitoring.RoundTrip.Observe(float64(ms) / 1000)
	if avg, ok := r.stats.add(ms); ok {
		r.log.Info().Msgf("average latency over %d frames: %.1fms", r.stats.every, avg)
	}

	if !r.buf.Push(res.Seq, res.Edges) {
		monitoring.Stale.Inc()
		r.log.Debug().Uint64(logger.SeqField, res.Seq).Msg("stale result")
		return
	}
	r.drain()
}

func (r *receiver) drain() {
	n := r.buf.Drain(func(seq uint64, f frame.Frame, ok bool) {
		if ok {
			r.presenter.Show(f)
			monitoring.Presented.Inc()
		} else {
			monitoring.Skipped.Inc()
			r.log.Warn().Uint64(logger.SeqField, seq).Msg("frame skipped")
		}
		r.gate.Release()
	})
	if n > 0 {
		r.moved = time.Now()
	}
	r.next.Store(r.buf.Next())
	r.buffered.Store(int64(r.buf.Len()))
	monitoring.ReorderDepth.Set(float64(r.buf.Len()))
	monitoring.InFlight.Set(float64(r.gate.Outstanding()))
}

// checkStall steps over lost frames once nothing moved for the stall
// timeout. Without the timeout lost frames hold the output forever.
// With nothing buffered every dispatched frame still missing is lost.
func (r *receiver) checkStall() {
	timeout := r.conf.StallTimeout
	if timeout <= 0 || time.Since(r.moved) < timeout {
		return
	}
	to, ok := r.buf.Min()
	if !ok {
		to = r.dispatcher.Dispatched()
	}
	if to <= r.buf.Next() {
		return
	}
	r.log.Warn().Msgf("stalled at %d, skipping to %d", r.buf.Next(), to)
	r.buf.SkipTo(to)
	r.drain()
}
