// Package dispatch sends captured frames to workers.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/monitoring"
	"github.com/sobelfarm/sobelfarm/pkg/tile"
	"github.com/sobelfarm/sobelfarm/pkg/wire"
)

// Sender pushes an encoded task to some worker.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// Dispatcher numbers frames and sends them out as tasks.
// The sequence starts at 0 and every Dispatch call takes the next number,
// even when the frame could not be sent. Such numbers are reported on
// the Forfeits channel.
type Dispatcher struct {
	seq      atomic.Uint64
	start    time.Time
	codec    wire.Codec
	gate     *InFlight
	out      Sender
	forfeits chan uint64
	log      *logger.Logger
}

func New(out Sender, gate *InFlight, codec wire.Codec, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		start:    time.Now(),
		codec:    codec,
		gate:     gate,
		out:      out,
		forfeits: make(chan uint64, 64),
		log:      log.Component("dispatch"),
	}
}

// Forfeits lists sequence numbers that will never get a result.
func (d *Dispatcher) Forfeits() <-chan uint64 { return d.forfeits }

// Start is the origin of the send_time stamps.
func (d *Dispatcher) Start() time.Time { return d.start }

// Dispatched is the number of sequence numbers given out.
func (d *Dispatcher) Dispatched() uint64 { return d.seq.Load() }

// SendTime is the current stamp, milliseconds since the dispatcher start.
func (d *Dispatcher) SendTime() int32 { return int32(time.Since(d.start).Milliseconds()) }

// Dispatch waits for a free in-flight slot and sends the frame.
// Frames too small for the kernel or failing to encode are dropped and
// forfeited with the error only logged. An error is returned when the
// gate or the transport are gone.
func (d *Dispatcher) Dispatch(ctx context.Context, f frame.Frame) (uint64, error) {
	if err := d.gate.Acquire(ctx); err != nil {
		return 0, err
	}
	monitoring.InFlight.Set(float64(d.gate.Outstanding()))

	seq := d.seq.Add(1) - 1
	task := frame.Task{Seq: seq, SendTime: d.SendTime(), Frame: f}

	if err := tile.CheckSize(f); err != nil {
		d.log.Warn().Err(err).Uint64(logger.SeqField, seq).Msg("frame dropped")
		monitoring.Dropped.WithLabelValues(monitoring.ReasonSize).Inc()
		return seq, d.forfeit(ctx, seq)
	}

	data, err := d.codec.EncodeTask(task)
	if err != nil {
		d.log.Error().Err(err).Uint64(logger.SeqField, seq).Msg("frame dropped")
		monitoring.Dropped.WithLabelValues(monitoring.ReasonEncode).Inc()
		return seq, d.forfeit(ctx, seq)
	}

	if err = d.out.Send(ctx, data); err != nil {
		monitoring.Dropped.WithLabelValues(monitoring.ReasonTransport).Inc()
		_ = d.forfeit(ctx, seq)
		return seq, fmt.Errorf("send %d: %w", seq, err)
	}
	monitoring.Dispatched.Inc()
	d.log.Debug().Uint64(logger.SeqField, seq).Msg("sent")
	return seq, nil
}

func (d *Dispatcher) forfeit(ctx context.Context, seq uint64) error {
	select {
	case d.forfeits <- seq:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
