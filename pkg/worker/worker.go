// Package worker is the compute side: it takes one task at a time from
// the host, runs the edge detector on it and sends the result back.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/convolution"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/monitoring"
	"github.com/sobelfarm/sobelfarm/pkg/tile"
	"github.com/sobelfarm/sobelfarm/pkg/transport"
	"github.com/sobelfarm/sobelfarm/pkg/wire"
)

// Conn is the worker end of the transport.
type Conn interface {
	Recv(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, data []byte) error
	Close()
}

type Worker struct {
	conn  Conn
	proc  *tile.Processor
	codec wire.Codec
	log   *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func New(conn Conn, proc *tile.Processor, codec wire.Codec, log *logger.Logger) *Worker {
	return &Worker{
		conn:  conn,
		proc:  proc,
		codec: codec,
		log:   log.Component("worker"),
		done:  make(chan struct{}),
	}
}

// Connect dials the host endpoints and sets up a worker over them.
func Connect(tasks, results url.URL, conf config.Pipeline, compress bool, tag string, log *logger.Logger) (*Worker, error) {
	engine, err := convolution.Select(conf.Engine)
	if err != nil {
		return nil, err
	}
	conn, err := transport.Dial(tasks, results, tag, log)
	if err != nil {
		return nil, err
	}
	w := New(conn, tile.NewProcessor(engine, conf.Stripes, conf.Threads), wire.Codec{Compress: compress}, log)
	w.log.Info().Msgf("engine: %v", engine)
	return w, nil
}

// Run starts the task loop in the background.
func (w *Worker) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go func() {
		defer w.stop()
		if err := w.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error().Err(err).Msg("worker stopped")
		}
	}()
}

// Done is closed when the task loop ends.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) stop() { w.once.Do(func() { close(w.done) }) }

func (w *Worker) Shutdown(ctx context.Context) error {
	w.conn.Close()
	if w.cancel == nil {
		w.stop()
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (w *Worker) String() string { return "worker" }

// Serve is the task loop. It ends without an error when the host goes away.
func (w *Worker) Serve(ctx context.Context) error {
	for {
		data, err := w.conn.Recv(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.log.Info().Msg("task channel closed")
				return nil
			}
			return err
		}
		out, seq, err := w.Handle(ctx, data)
		if err != nil {
			w.log.Warn().Err(err).Uint64(logger.SeqField, seq).Msg("frame dropped")
			monitoring.Failed.Inc()
			continue
		}
		if err = w.conn.Send(ctx, out); err != nil {
			return fmt.Errorf("result %d: %w", seq, err)
		}
		monitoring.Processed.Inc()
	}
}

// Handle turns an encoded task into an encoded result.
func (w *Worker) Handle(ctx context.Context, data []byte) ([]byte, uint64, error) {
	task, err := w.codec.DecodeTask(data)
	if err != nil {
		monitoring.Dropped.WithLabelValues(monitoring.ReasonMalformed).Inc()
		return nil, 0, err
	}
	start := time.Now()
	edges, err := w.proc.Process(ctx, task.Frame)
	if err != nil {
		monitoring.Dropped.WithLabelValues(monitoring.ReasonProcess).Inc()
		return nil, task.Seq, err
	}
	monitoring.ProcessTime.Observe(time.Since(start).Seconds())

	out, err := w.codec.EncodeResult(frame.Result{Seq: task.Seq, SendTime: task.SendTime, Edges: edges})
	if err != nil {
		return nil, task.Seq, err
	}
	w.log.Debug().Uint64(logger.SeqField, task.Seq).Dur("took", time.Since(start)).Msg("done")
	return out, task.Seq, nil
}
