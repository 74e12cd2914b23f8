// Package host is the producer side of the farm. It reads frames, hands
// them out to workers and shows the edge maps that come back in the
// order the frames were read.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"
	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/dispatch"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/present"
	"github.com/sobelfarm/sobelfarm/pkg/source"
	"github.com/sobelfarm/sobelfarm/pkg/transport"
	"github.com/sobelfarm/sobelfarm/pkg/wire"
	"github.com/sobelfarm/sobelfarm/pkg/worker"
)

// Results is where the encoded results come from.
type Results interface {
	Results() <-chan []byte
}

// Transport is the host end of the task and result channels.
type Transport interface {
	dispatch.Sender
	Results
}

type Host struct {
	conf  config.Host
	codec wire.Codec

	src       source.VideoSource
	presenter present.Presenter
	net       Transport

	gate       *dispatch.InFlight
	dispatcher *dispatch.Dispatcher

	// end of stream, carries the number of dispatched frames
	eos chan uint64

	next     atomic.Uint64
	buffered atomic.Int64

	run string
	log *logger.Logger
}

func New(conf config.Host, codec wire.Codec, src source.VideoSource, p present.Presenter, net Transport, log *logger.Logger) *Host {
	id, _ := uuid.NewV4()
	log = log.Extend(log.Component("host").With().Str("run", id.String()[:8]))
	gate := dispatch.NewInFlight(conf.HighWaterMark)
	return &Host{
		conf:       conf,
		codec:      codec,
		src:        src,
		presenter:  p,
		net:        net,
		gate:       gate,
		dispatcher: dispatch.New(net, gate, codec, log),
		eos:        make(chan uint64, 1),
		run:        id.String(),
		log:        log,
	}
}

// Run works until the stream is over and every frame is shown or
// skipped, or until the exit key. It closes the source and the presenter.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.send(ctx)
	}()

	err := h.receive(ctx, h.net.Results())

	h.gate.Close()
	cancel()
	wg.Wait()

	if perr := h.presenter.Close(); err == nil {
		err = perr
	}
	return err
}

// send is the capture loop.
func (h *Host) send(ctx context.Context) {
	defer func() {
		if err := h.src.Close(); err != nil {
			h.log.Warn().Err(err).Msg("source close")
		}
		h.eos <- h.dispatcher.Dispatched()
	}()
	for {
		f, err := h.src.NextFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.log.Error().Err(err).Msg("capture failed")
			}
			h.log.Info().Msgf("end of stream after %d frames", h.dispatcher.Dispatched())
			return
		}
		if _, err = h.dispatcher.Dispatch(ctx, f); err != nil {
			if !errors.Is(err, dispatch.ErrClosed) && !errors.Is(err, context.Canceled) {
				h.log.Error().Err(err).Msg("dispatch failed")
			}
			return
		}
	}
}

// Status is a snapshot for the monitoring page.
type Status struct {
	Run        string `json:"run"`
	Dispatched uint64 `json:"dispatched"`
	Next       uint64 `json:"next"`
	InFlight   uint64 `json:"in_flight"`
	Buffered   int64  `json:"buffered"`
	Workers    int    `json:"workers,omitempty"`
}

func (h *Host) Status() any {
	s := Status{
		Run:        h.run,
		Dispatched: h.dispatcher.Dispatched(),
		Next:       h.next.Load(),
		InFlight:   h.gate.Outstanding(),
		Buffered:   h.buffered.Load(),
	}
	if t, ok := h.net.(interface{ Workers() int }); ok {
		s.Workers = t.Workers()
	}
	return s
}

// LocalWorkers starts n workers in this process connected to the
// transport over loopback.
func LocalWorkers(n int, t *transport.Host, conf config.Pipeline, compress bool, log *logger.Logger) ([]*worker.Worker, error) {
	var workers []*worker.Worker
	for i := 0; i < n; i++ {
		w, err := worker.Connect(t.TasksURL(), t.ResultsURL(), conf, compress, fmt.Sprintf("local-%d", i), log)
		if err != nil {
			for _, w := range workers {
				_ = w.Shutdown(context.Background())
			}
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}
