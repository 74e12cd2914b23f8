// Package transport moves encoded tasks and results between the host and
// its workers over two websocket endpoints.
//
// The task endpoint is a work queue: every message goes to exactly one of
// the connected workers, whichever is ready first. The result endpoint
// funnels everything the workers send into one inbox. Delivery is at most
// once, with no acks and no ordering.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/network"
	"github.com/sobelfarm/sobelfarm/pkg/network/httpx"
	"github.com/sobelfarm/sobelfarm/pkg/network/websocket"
)

// QueueSize is how many tasks may wait for a worker before Send blocks.
const QueueSize = 1

const inboxSize = 64

var ErrShutdown = errors.New("transport is shut down")

// Host binds the task and result endpoints.
type Host struct {
	conf    config.Transport
	tasks   *httpx.Server
	results *httpx.Server

	queue chan []byte
	inbox chan []byte
	done  chan struct{}

	workers *peers[network.Uid, *websocket.WS]
	log     *logger.Logger
}

// Bind opens both endpoints, it fails if any of the ports is taken.
func Bind(conf config.Transport, log *logger.Logger) (*Host, error) {
	h := &Host{
		conf:    conf,
		queue:   make(chan []byte, QueueSize),
		inbox:   make(chan []byte, inboxSize),
		done:    make(chan struct{}),
		workers: newPeers[network.Uid, *websocket.WS](),
		log:     log.Component("transport"),
	}

	var err error
	h.tasks, err = httpx.NewServer(
		fmt.Sprintf("%s:%d", conf.Address, conf.TasksPort),
		func(*httpx.Server) httpx.Handler { return h.route(conf.TasksPath, h.serveTasks) },
		httpx.WithPortRoll(conf.PortRoll),
		httpx.WithLogger(h.log),
	)
	if err != nil {
		return nil, fmt.Errorf("tasks endpoint: %w", err)
	}
	h.results, err = httpx.NewServer(
		fmt.Sprintf("%s:%d", conf.Address, conf.ResultsPort),
		func(*httpx.Server) httpx.Handler { return h.route(conf.ResultsPath, h.serveResults) },
		httpx.WithPortRoll(conf.PortRoll),
		httpx.WithLogger(h.log),
	)
	if err != nil {
		_ = h.tasks.Close()
		return nil, fmt.Errorf("results endpoint: %w", err)
	}
	return h, nil
}

func (h *Host) route(path string, fn httpx.HandlerFunc) httpx.Handler {
	mux := httpx.NewServeMux()
	mux.HandleFunc(path, fn)
	return mux
}

func (h *Host) Run() {
	h.tasks.Run()
	h.results.Run()
	tasks, results := h.TasksURL(), h.ResultsURL()
	h.log.Info().Msgf("tasks at %v, results at %v", tasks.String(), results.String())
}

// Shutdown stops accepting connections and drops connected workers.
func (h *Host) Shutdown(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	default:
		close(h.done)
	}
	err := errors.Join(h.tasks.Shutdown(ctx), h.results.Shutdown(ctx))
	h.workers.ForEach(func(ws *websocket.WS) { ws.Close() })
	return err
}

func (h *Host) String() string { return "transport::" + h.tasks.Addr + "," + h.results.Addr }

// TasksURL is the real address of the task endpoint.
func (h *Host) TasksURL() url.URL {
	return network.WsURL(h.conf.Address, h.tasks.Port(), h.conf.TasksPath, h.conf.Secure)
}

// ResultsURL is the real address of the result endpoint.
func (h *Host) ResultsURL() url.URL {
	return network.WsURL(h.conf.Address, h.results.Port(), h.conf.ResultsPath, h.conf.Secure)
}

// Workers is the number of connected task consumers.
func (h *Host) Workers() int { return h.workers.Len() }

// Send queues a task for the next ready worker.
// It blocks while the queue is full.
func (h *Host) Send(ctx context.Context, data []byte) error {
	select {
	case h.queue <- data:
		return nil
	case <-h.done:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results is the inbox of everything the workers send back.
func (h *Host) Results() <-chan []byte { return h.inbox }

// hello reads the worker greeting and refuses connections made for the
// other endpoint.
func (h *Host) hello(w httpx.ResponseWriter, r *httpx.Request, role string) (Hello, bool) {
	var hi Hello
	err := fromBase64Json(r.URL.Query().Get("data"), &hi)
	if err == nil {
		err = hi.check(role)
	}
	if err != nil {
		h.log.Warn().Err(err).Msgf("worker refused at %v", r.URL.Path)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return hi, false
	}
	return hi, true
}

func (h *Host) serveTasks(w httpx.ResponseWriter, r *httpx.Request) {
	hi, ok := h.hello(w, r, RoleTasks)
	if !ok {
		return
	}
	conn, err := websocket.NewServer(w, r, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("task socket upgrade")
		return
	}
	conn.Listen()
	h.workers.Put(conn.Id(), conn)
	log := h.log.Extend(h.log.With().Str(logger.ConnField, conn.Id().Short()).Str(logger.DirectionField, "→"))
	log.Info().Msgf("worker %v [%v] connected, %v in total", hi.Id, hi.Tag, h.workers.Len())

	defer func() {
		h.workers.RemoveByKey(conn.Id())
		conn.Close()
		log.Info().Msgf("worker %v [%v] disconnected", hi.Id, hi.Tag)
	}()

	for {
		select {
		case data := <-h.queue:
			if err := conn.Write(data); err != nil {
				// the task is lost, the host will step over it
				log.Warn().Err(err).Msg("task lost")
				return
			}
		case <-conn.Done():
			return
		case <-h.done:
			return
		}
	}
}

func (h *Host) serveResults(w httpx.ResponseWriter, r *httpx.Request) {
	hi, ok := h.hello(w, r, RoleResults)
	if !ok {
		return
	}
	conn, err := websocket.NewServer(w, r, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("result socket upgrade")
		return
	}
	log := h.log.Extend(h.log.With().Str(logger.ConnField, conn.Id().Short()).Str(logger.DirectionField, "←"))
	conn.OnMessage = func(message []byte) {
		select {
		case h.inbox <- message:
		case <-h.done:
		}
	}
	conn.Listen()
	log.Debug().Msgf("results from %v [%v]", hi.Id, hi.Tag)

	select {
	case <-conn.Done():
	case <-h.done:
	}
	conn.Close()
}
