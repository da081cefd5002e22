package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/Wyydra/huddle/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// closeWait bounds the going-away frame written by Close.
const closeWait = time.Second

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

type Options struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
	SendBuffer      int
}

func DefaultOptions() Options {
	return Options{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingInterval:    54 * time.Second,
		MaxMessageBytes: 64 * 1024,
		SendBuffer:      64,
	}
}

// Frame is the JSON envelope for every message in both directions.
type Frame struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

// Client implements port.Client on top of a gorilla connection. Outbound
// events are queued and written by WritePump, so Send never touches the
// socket.
type Client struct {
	id   domain.ConnID
	conn *websocket.Conn
	opts Options
	log  zerolog.Logger

	send chan domain.Event
	done chan struct{}
	once sync.Once
}

func NewClient(conn *websocket.Conn, opts Options, logger zerolog.Logger) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	id := domain.NewConnID()
	return &Client{
		id:   id,
		conn: conn,
		opts: opts,
		log:  logger.With().Str("conn_id", id.String()).Logger(),
		send: make(chan domain.Event, opts.SendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() domain.ConnID {
	return c.id
}

func (c *Client) Send(evt domain.Event) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- evt:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close is idempotent. The first call sends a going-away close frame.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(min(c.opts.WriteWait, closeWait)),
		)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WritePump drains the send queue and keeps the connection alive with pings
// until the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case evt := <-c.send:
			args := evt.Args
			if args == nil {
				args = []any{}
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteJSON(Frame{Event: evt.Name, Args: args}); err != nil {
				c.log.Debug().Err(err).Str("event", evt.Name).Msg("Error writing event")
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				c.log.Debug().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// ReadLoop hands every text frame to handle until the connection fails. The
// returned error is whatever ended the loop.
func (c *Client) ReadLoop(handle func(data []byte)) error {
	if c.opts.MaxMessageBytes > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		if msgType != websocket.TextMessage {
			c.log.Debug().Int("type", msgType).Msg("Ignoring non-text frame")
			continue
		}
		handle(data)
	}
}
