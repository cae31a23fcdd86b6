package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client 代表一個 WebSocket 連線
// send 只由 Hub 寫入與關閉；writePump 是唯一的讀取者
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()[:8]
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
		log:  h.log.With("client_id", id, "remote", conn.RemoteAddr().String()),
	}
}

// readPump 讀取框架、解碼驗證後依序交給 Hub
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.hub.pumps.Done()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				c.log.Warn("websocket frame exceeds read limit", "limit", c.hub.opts.MaxFrameBytes)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
				c.log.Info("websocket unexpected close", "error", err)
			}
			return
		}

		cmd, err := c.hub.decoder.Decode(frame)
		if err != nil {
			c.hub.stats.rejected.Add(1)
			c.log.Warn("websocket event rejected", "error", err)
			continue
		}

		select {
		case c.hub.inbound <- inboundEvent{client: c, cmd: cmd}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump 每則訊息寫成一個獨立框架，並定時送出 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.pumps.Done()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if !ok {
				// Hub 已經移除此連線
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
