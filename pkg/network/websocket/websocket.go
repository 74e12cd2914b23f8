package websocket

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/network"
)

const (
	maxMessageSize = 64 * 1024 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
)

var ErrClosed = errors.New("websocket is closed")

// WS is a websocket connection with serialized reads and writes.
// All messages are binary.
type WS struct {
	id   network.Uid
	conn deadlinedConn
	send chan []byte

	// OnMessage is called from the reader goroutine for each message.
	// The next message is not read until it returns.
	OnMessage MessageHandler

	pingPong bool

	shutdown sync.WaitGroup
	done     chan struct{}
	once     sync.Once
	log      *logger.Logger
}

type MessageHandler func(message []byte)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	WriteBufferPool: &sync.Pool{},
}

// NewServer upgrades an HTTP request into a websocket peer connection.
func NewServer(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*WS, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, true, log), nil
}

func NewClient(address url.URL, log *logger.Logger) (*WS, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  64 * 1024,
	}
	conn, _, err := dialer.Dial(address.String(), nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, false, log), nil
}

func newSocket(conn *websocket.Conn, pingPong bool, log *logger.Logger) *WS {
	if log == nil {
		log = logger.Default()
	}
	id := network.NewUid()
	return &WS{
		id:       id,
		conn:     deadlinedConn{sock: conn, wt: writeWait},
		send:     make(chan []byte),
		pingPong: pingPong,
		done:     make(chan struct{}),
		log:      log.Extend(log.With().Str(logger.ConnField, id.Short())),
	}
}

func (ws *WS) Id() network.Uid { return ws.id }

// Listen starts the reader and writer pumps.
// OnMessage should be set before the call.
func (ws *WS) Listen() {
	ws.shutdown.Add(2)
	go ws.writer()
	go ws.reader()
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Blocking, must be called as goroutine. Serializes all websocket reads.
func (ws *WS) reader() {
	defer func() {
		ws.shutdown.Done()
		ws.markDone()
		ws.log.Debug().Msg("ws reader closed")
	}()
	ws.conn.setup(func(conn *websocket.Conn) {
		conn.SetReadLimit(maxMessageSize)
		if ws.pingPong {
			_ = conn.SetReadDeadline(time.Now().Add(pongTime))
			conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(pongTime)); return nil })
		}
	})
	for {
		typ, message, err := ws.conn.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Warn().Err(err).Msg("ws read")
			}
			return
		}
		if typ != websocket.BinaryMessage {
			ws.log.Warn().Msgf("skipped ws message of type %v", typ)
			continue
		}
		if ws.OnMessage != nil {
			ws.OnMessage(message)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Blocking, must be called as goroutine. Serializes all websocket writes.
func (ws *WS) writer() {
	var tick <-chan time.Time
	if ws.pingPong {
		ticker := time.NewTicker(pingTime)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() {
		ws.shutdown.Done()
		ws.markDone()
		ws.log.Debug().Msg("ws writer closed")
	}()
	for {
		select {
		case message := <-ws.send:
			if err := ws.conn.write(websocket.BinaryMessage, message); err != nil {
				ws.log.Warn().Err(err).Msg("ws write")
				return
			}
		case <-tick:
			if err := ws.conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ws.done:
			_ = ws.conn.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Write hands the message over to the writer pump.
// It blocks until the writer takes it or the connection dies.
func (ws *WS) Write(data []byte) error {
	select {
	case ws.send <- data:
		return nil
	case <-ws.done:
		return ErrClosed
	}
}

// Done is closed when any of the pumps stops.
func (ws *WS) Done() <-chan struct{} { return ws.done }

func (ws *WS) markDone() { ws.once.Do(func() { close(ws.done) }) }

// Close stops the pumps and closes the underlying connection.
func (ws *WS) Close() {
	ws.markDone()
	// let the writer say goodbye before the socket is gone
	wait := make(chan struct{})
	go func() { ws.shutdown.Wait(); close(wait) }()
	select {
	case <-wait:
	case <-time.After(time.Second):
	}
	_ = ws.conn.close()
}
