package ws

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"

	"github.com/Pin3appl3ishan/iLike-web/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxFrameBytes  = 64 * 1024
	sendBufferSize = 256
)

// Client is one authenticated websocket connection. A read pump and a write
// pump run per client so a slow peer only ever stalls itself.
type Client struct {
	userID  string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

func newClient(conn *websocket.Conn, userID string, eventsPerSec int) *Client {
	if eventsPerSec <= 0 {
		eventsPerSec = 20
	}
	return &Client{
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(rate.Limit(eventsPerSec), eventsPerSec),
	}
}

// enqueue hands a frame to the write pump without blocking. A full buffer
// means the client is not keeping up; the frame is dropped rather than
// stalling fan-out to everyone else.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		metrics.EventsDropped.Inc()
	}
}

// readPump decodes inbound frames and hands them to the gateway dispatcher.
// It returns on any read error, including network loss, which the caller
// treats the same as an explicit disconnect.
func (c *Client) readPump(g *Gateway) {
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			c.enqueue(encode(EvMessageError, map[string]string{"message": "slow down"}))
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		g.dispatch(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
