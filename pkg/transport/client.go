package transport

import (
	"context"
	"errors"
	"io"
	"net/url"

	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/network"
	"github.com/sobelfarm/sobelfarm/pkg/network/websocket"
)

// Client is the worker end of the transport.
type Client struct {
	id      network.Uid
	tasks   *websocket.WS
	results *websocket.WS
	in      chan []byte
	log     *logger.Logger
}

// Dial connects to both host endpoints.
func Dial(tasks, results url.URL, tag string, log *logger.Logger) (*Client, error) {
	c := &Client{id: network.NewUid(), in: make(chan []byte)}
	c.log = log.Extend(log.Component("transport").With().Str("worker", c.id.Short()))

	var err error
	if c.tasks, err = c.dial(tasks, Hello{Id: c.id, Tag: tag, Role: RoleTasks}); err != nil {
		return nil, err
	}
	if c.results, err = c.dial(results, Hello{Id: c.id, Tag: tag, Role: RoleResults}); err != nil {
		c.tasks.Close()
		return nil, err
	}

	// one task is handed over at a time, the socket is not read
	// until the previous one is taken
	c.tasks.OnMessage = func(message []byte) {
		select {
		case c.in <- message:
		case <-c.tasks.Done():
		}
	}
	c.tasks.Listen()
	c.results.Listen()
	c.log.Info().Msgf("connected to %v and %v", tasks.String(), results.String())
	return c, nil
}

func (c *Client) dial(address url.URL, hi Hello) (*websocket.WS, error) {
	if req, err := toBase64Json(hi); err == nil {
		address.RawQuery = "data=" + req
	}
	conn, err := websocket.NewClient(address, c.log)
	if err != nil {
		return nil, errors.Join(ErrDial, err)
	}
	return conn, nil
}

var ErrDial = errors.New("could not connect to the host")

func (c *Client) Id() network.Uid { return c.id }

// Recv waits for the next task.
// It returns io.EOF when the host closes the task connection.
func (c *Client) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.tasks.Done():
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send returns a result to the host.
func (c *Client) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.results.Write(data)
}

func (c *Client) Close() {
	c.tasks.Close()
	c.results.Close()
}
