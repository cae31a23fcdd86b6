package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chat_relay/internal/models"
	"chat_relay/internal/repository"

	"github.com/gorilla/websocket"
)

// Options 控制 Hub 與每個連線的行為
type Options struct {
	HistoryLimit  int
	EchoSender    bool
	SendBuffer    int
	OpTimeout     time.Duration
	MaxFrameBytes int64
	MaxBodyLength int
	PingInterval  time.Duration
	PongWait      time.Duration
	WriteWait     time.Duration
}

func DefaultOptions() Options {
	return Options{
		HistoryLimit:  repository.DefaultHistoryLimit,
		SendBuffer:    256,
		OpTimeout:     5 * time.Second,
		MaxFrameBytes: 64 << 10,
		MaxBodyLength: 4000,
		PingInterval:  54 * time.Second,
		PongWait:      60 * time.Second,
		WriteWait:     10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = d.HistoryLimit
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = d.OpTimeout
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = d.MaxFrameBytes
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	return o
}

// HubStats 是 Hub 的累計計數
type HubStats struct {
	Connected int    `json:"connectedClients"`
	Relayed   uint64 `json:"relayed"`
	Dropped   uint64 `json:"dropped"`
	Rejected  uint64 `json:"rejected"`
	NotFound  uint64 `json:"notFound"`
	Evicted   uint64 `json:"evicted"`
}

type hubCounters struct {
	relayed  atomic.Uint64
	dropped  atomic.Uint64
	rejected atomic.Uint64
	notFound atomic.Uint64
	evicted  atomic.Uint64
}

type inboundEvent struct {
	client *Client
	cmd    Command
}

// Hub 以單一 goroutine 依序處理註冊、離線與所有客戶端事件
// clients 只在 Run 內部讀寫
type Hub struct {
	repo     repository.MessageRepository
	sessions *SessionRegistry
	opts     Options
	log      *slog.Logger
	decoder  *Decoder

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	pumps    sync.WaitGroup
	stats    hubCounters
}

func NewHub(repo repository.MessageRepository, sessions *SessionRegistry, opts Options, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		sessions = NewSessionRegistry(log)
	}
	opts = opts.withDefaults()

	return &Hub{
		repo:       repo,
		sessions:   sessions,
		opts:       opts,
		log:        log.With("component", "hub"),
		decoder:    NewDecoder(opts.MaxBodyLength),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Serve 接手一個已升級的連線，立即返回；連線由 Hub 負責關閉
func (h *Hub) Serve(conn *websocket.Conn) {
	c := newClient(h, conn)

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// leave 由 readPump 結束時呼叫
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run 執行 Hub 主迴圈，直到 ctx 結束或呼叫 Shutdown
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("hub started",
		"history_limit", h.opts.HistoryLimit,
		"echo_sender", h.opts.EchoSender,
		"send_buffer", h.opts.SendBuffer,
	)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case <-h.quit:
			h.closeAll()
			return

		case c := <-h.register:
			h.handleRegister(ctx, c)

		case c := <-h.unregister:
			if h.drop(c) {
				c.log.Info("client disconnected", "connected", h.sessions.Current())
				h.publishCount()
			}

		case ev := <-h.inbound:
			// 已被移除的連線可能還有排隊中的事件
			if _, ok := h.clients[ev.client]; !ok {
				continue
			}
			h.handle(ctx, ev)
		}
	}
}

// Shutdown 停止主迴圈、關閉所有連線並等待讀寫 goroutine 結束
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.quitOnce.Do(func() { close(h.quit) })

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		<-h.done
		h.pumps.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats 可以從任何 goroutine 呼叫
func (h *Hub) Stats() HubStats {
	return HubStats{
		Connected: h.sessions.Current(),
		Relayed:   h.stats.relayed.Load(),
		Dropped:   h.stats.dropped.Load(),
		Rejected:  h.stats.rejected.Load(),
		NotFound:  h.stats.notFound.Load(),
		Evicted:   h.stats.evicted.Load(),
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	// 在 Run 內計數，確保 Shutdown 的 Wait 一定看得到這兩個 goroutine
	h.pumps.Add(2)
	h.clients[c] = struct{}{}
	count := h.sessions.Increment()
	c.log.Info("client connected", "connected", count)

	history, err := h.loadHistory(ctx)
	if err != nil {
		c.log.Error("load message history failed", "error", err)
		history = nil
	}

	frame, err := historyFrame(history)
	if err != nil {
		c.log.Error("encode message history failed", "error", err)
	} else if !h.sendTo(c, frame) {
		return
	}

	h.publishCount()
}

func (h *Hub) loadHistory(ctx context.Context) ([]models.Message, error) {
	opCtx, cancel := context.WithTimeout(ctx, h.opts.OpTimeout)
	defer cancel()
	return h.repo.RecentActive(opCtx, h.opts.HistoryLimit)
}

func (h *Hub) handle(ctx context.Context, ev inboundEvent) {
	c := ev.client
	log := c.log.With("event", ev.cmd.EventName())

	switch cmd := ev.cmd.(type) {
	case SendMessage:
		opCtx, cancel := context.WithTimeout(ctx, h.opts.OpTimeout)
		m, err := h.repo.Append(opCtx, cmd.Username, cmd.Avatar, cmd.Body)
		cancel()
		if err != nil {
			h.stats.dropped.Add(1)
			log.Error("append message failed, event dropped", "error", err)
			return
		}
		skip := c
		if h.opts.EchoSender {
			skip = nil
		}
		h.relay(log, EventReceiveMessage, m, skip)

	case Typing:
		h.relay(log, EventUserTyping, TypingNotice{Username: cmd.Username}, c)

	case StopTyping:
		h.relay(log, EventUserStoppedTyping, nil, c)

	case DeleteMessage:
		opCtx, cancel := context.WithTimeout(ctx, h.opts.OpTimeout)
		err := h.repo.SoftDelete(opCtx, cmd.ID)
		cancel()
		if !h.storeOutcome(log, cmd.ID, err) {
			return
		}
		h.relay(log, EventMessageDeleted, DeletedNotice{ID: cmd.ID}, nil)

	case EditMessage:
		opCtx, cancel := context.WithTimeout(ctx, h.opts.OpTimeout)
		err := h.repo.Edit(opCtx, cmd.ID, cmd.NewMessage)
		cancel()
		if !h.storeOutcome(log, cmd.ID, err) {
			return
		}
		h.relay(log, EventMessageEdited, EditedNotice{ID: cmd.ID, NewMessage: cmd.NewMessage}, nil)

	default:
		h.stats.rejected.Add(1)
		log.Warn("unhandled command")
	}
}

// storeOutcome 回報是否應該繼續廣播；找不到訊息仍然廣播，id 格式不合則不廣播
func (h *Hub) storeOutcome(log *slog.Logger, id string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, repository.ErrMessageNotFound):
		h.stats.notFound.Add(1)
		log.Info("message not found", "message_id", id, "outcome", "not_found")
		return true
	case errors.Is(err, repository.ErrInvalidID):
		h.stats.rejected.Add(1)
		log.Warn("invalid message id, event dropped", "message_id", id, "outcome", "invalid_id")
		return false
	default:
		h.stats.dropped.Add(1)
		log.Error("store operation failed, event dropped", "message_id", id, "error", err)
		return false
	}
}

func (h *Hub) relay(log *slog.Logger, event string, data any, skip *Client) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Error("encode frame failed", "error", err)
		return
	}
	h.stats.relayed.Add(1)
	h.broadcast(frame, skip)
}

func (h *Hub) publishCount() {
	frame, err := encodeFrame(EventConnectedClients, CountNotice{Count: h.sessions.Current()})
	if err != nil {
		h.log.Error("encode connected clients failed", "error", err)
		return
	}
	h.broadcast(frame, nil)
}

// broadcast 把框架放進每個連線的佇列，佇列已滿的連線會被移除
func (h *Hub) broadcast(frame []byte, skip *Client) {
	var evicted []*Client
	for c := range h.clients {
		if c == skip {
			continue
		}
		select {
		case c.send <- frame:
		default:
			evicted = append(evicted, c)
		}
	}
	if len(evicted) == 0 {
		return
	}

	for _, c := range evicted {
		h.evict(c)
	}
	h.publishCount()
}

// sendTo 只送給單一連線，佇列已滿時移除並回傳 false
func (h *Hub) sendTo(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		h.evict(c)
		h.publishCount()
		return false
	}
}

func (h *Hub) evict(c *Client) {
	if h.drop(c) {
		h.stats.evicted.Add(1)
		c.log.Warn("client send buffer full, evicted", "buffer", h.opts.SendBuffer)
	}
}

// drop 移除連線並關閉它的佇列；已移除時回傳 false
func (h *Hub) drop(c *Client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	h.sessions.Decrement()
	return true
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.drop(c)
	}
	h.log.Info("hub closed all clients")
}
