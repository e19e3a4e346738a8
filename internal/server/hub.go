package server

import (
	"context"
	"log"
	"net/http"
	"sync"

	"huddle/internal/database"
	"huddle/internal/stats"
	"huddle/internal/types"
)

// Hub wires the lifecycle, message store and broadcaster together and
// dispatches inbound action frames. It also keeps the table of local
// transport endpoints (connection id -> client); the registry in the
// durable store stays the source of truth for who is connected, the local
// table only says which sockets terminate here.
type Hub struct {
	log       *log.Logger
	db        database.HuddleRepository
	stats     stats.StatsProvider
	lifecycle *Lifecycle
	messages  *MessageStore
	bc        *Broadcaster
	dispatch  map[Action]actionHandler

	clients     map[string]*Client
	clientsLock sync.RWMutex
}

type actionHandler func(ctx context.Context, c *Client, frame *ActionFrame) Result

func NewHub(logger *log.Logger, db database.HuddleRepository, sp stats.StatsProvider) *Hub {
	h := &Hub{
		log:     logger,
		db:      db,
		stats:   sp,
		clients: make(map[string]*Client),
	}
	h.lifecycle = NewLifecycle(db, logger, sp)
	h.messages = NewMessageStore(db, logger)
	h.bc = NewBroadcaster(db, h, logger, sp)
	h.dispatch = map[Action]actionHandler{
		ActionMessage:       h.handleMessage,
		ActionThreadMessage: h.handleThreadMessage,
		ActionPresence:      h.handlePresence,
		ActionTyping:        h.handleTyping,
	}

	return h
}

// Messages exposes the durable message log to the HTTP surface.
func (h *Hub) Messages() *MessageStore {
	return h.messages
}

// RegisterClient runs the connect handshake: it registers the connection in
// the durable registry (superseding prior ones for the same user and
// workspace) and installs the client as the local endpoint for its id.
func (h *Hub) RegisterClient(c *Client) (types.Connection, error) {
	conn, err := h.lifecycle.Connect(c.workspaceId, c.userId, c.connectionId)
	if err != nil {
		return types.Connection{}, err
	}

	h.clientsLock.Lock()
	if prev, ok := h.clients[c.connectionId]; ok && prev != c {
		prev.stopClient()
	}
	h.clients[c.connectionId] = c
	h.clientsLock.Unlock()

	h.log.Printf("registered connection %q for user %q in workspace %q",
		c.connectionId, c.userId, c.workspaceId)
	h.stats.Incr(MetricActiveConnections)

	return conn, nil
}

// DeregisterClient removes the local endpoint and the registry record.
// Peers are not notified; they discover absence lazily via failed delivery.
func (h *Hub) DeregisterClient(c *Client) {
	h.clientsLock.Lock()
	cur, ok := h.clients[c.connectionId]
	if ok && cur == c {
		delete(h.clients, c.connectionId)
	}
	h.clientsLock.Unlock()
	if !ok || cur != c {
		// superseded by a newer socket for the same id; nothing to do
		return
	}

	if err := h.lifecycle.Disconnect(c.connectionId); err != nil {
		h.log.Printf("disconnect %q: %v", c.connectionId, err)
	}
	h.stats.Decr(MetricActiveConnections)
}

// Send implements Transport over the local endpoint table.
func (h *Hub) Send(ctx context.Context, connectionId string, data []byte) error {
	h.clientsLock.RLock()
	c, ok := h.clients[connectionId]
	h.clientsLock.RUnlock()

	if !ok {
		return ErrPeerGone
	}

	return c.queueMessage(data)
}

// HandleFrame dispatches one inbound action frame and returns the
// HTTP-like result that is acked to the sender.
func (h *Hub) HandleFrame(ctx context.Context, c *Client, frame *ActionFrame) Result {
	handler, ok := h.dispatch[frame.Action]
	if !ok {
		return errResult(http.StatusBadRequest, "unknown action")
	}

	return handler(ctx, c, frame)
}

// requireActiveConnection rejects frames from connections that are not
// registered and live; the client should reconnect.
func (h *Hub) requireActiveConnection(connectionId string) (types.Connection, error) {
	conn, err := h.lifecycle.Connection(connectionId)
	if err != nil {
		return types.Connection{}, err
	}
	if !types.ActiveStatus(conn.Status) {
		return types.Connection{}, ErrConnectionInactive
	}

	return conn, nil
}

// handleMessage persists the message, then fans it out. Persist comes
// first: a message that failed to store is never broadcast, and a broadcast
// that partially fails is still a success because the durable effect
// already happened.
func (h *Hub) handleMessage(ctx context.Context, c *Client, frame *ActionFrame) Result {
	conn, err := h.requireActiveConnection(c.connectionId)
	if err != nil {
		return resultForError(err)
	}

	msg, err := h.messages.Append(frame.ChannelId, conn.UserId, frame.Content, frame.Attachments)
	if err != nil {
		h.log.Printf("append message on %q (channel %q, workspace %q): %v",
			c.connectionId, frame.ChannelId, conn.WorkspaceId, err)
		return resultForError(err)
	}
	h.stats.Incr(MetricMessagesPersisted)

	// the sender is included in the fanout; clients dedup by messageId
	agg := h.bc.Broadcast(ctx, conn.WorkspaceId, &Push{
		Type:        PushMessage,
		ChannelId:   msg.ChannelId,
		Content:     msg.Content,
		UserId:      msg.UserId,
		Timestamp:   msg.Timestamp,
		Attachments: msg.Attachments,
		MessageId:   msg.MessageId(),
	}, "")

	return okResult(map[string]any{
		"messageId": msg.MessageId(),
		"broadcast": agg,
	})
}

// handleThreadMessage is the thread counterpart of handleMessage. Thread
// pushes go to the whole workspace, not just channel members; thread read
// access is already gated at the channel level upstream.
func (h *Hub) handleThreadMessage(ctx context.Context, c *Client, frame *ActionFrame) Result {
	conn, err := h.requireActiveConnection(c.connectionId)
	if err != nil {
		return resultForError(err)
	}

	msg, err := h.messages.AppendThread(frame.ParentMessageId, conn.UserId, frame.Content, frame.Attachments)
	if err != nil {
		h.log.Printf("append thread message on %q (parent %q, workspace %q): %v",
			c.connectionId, frame.ParentMessageId, conn.WorkspaceId, err)
		return resultForError(err)
	}
	h.stats.Incr(MetricThreadMessagesPersisted)

	agg := h.bc.Broadcast(ctx, conn.WorkspaceId, &Push{
		Type:            PushThreadMessage,
		ParentMessageId: msg.ParentMessageId,
		Content:         msg.Content,
		UserId:          msg.UserId,
		Timestamp:       msg.Timestamp,
		Attachments:     msg.Attachments,
		MessageId:       msg.MessageId(),
	}, "")

	return okResult(map[string]any{
		"messageId": msg.MessageId(),
		"broadcast": agg,
	})
}

// handlePresence stores the new status and tells everyone else about it.
func (h *Hub) handlePresence(ctx context.Context, c *Client, frame *ActionFrame) Result {
	conn, err := h.lifecycle.UpdatePresence(c.connectionId, frame.Status)
	if err != nil {
		h.log.Printf("update presence on %q: %v", c.connectionId, err)
		return resultForError(err)
	}

	agg := h.bc.Broadcast(ctx, conn.WorkspaceId, &Push{
		Type:         PushPresence,
		ConnectionId: conn.ConnectionId,
		Status:       conn.Status,
	}, conn.ConnectionId)

	return okResult(map[string]any{"broadcast": agg})
}

// handleTyping broadcasts only; typing indicators are never persisted.
func (h *Hub) handleTyping(ctx context.Context, c *Client, frame *ActionFrame) Result {
	if frame.ChannelId == "" {
		return resultForError(ErrMissingParams)
	}

	isTyping := frame.IsTyping
	agg := h.bc.Broadcast(ctx, c.workspaceId, &Push{
		Type:         PushTyping,
		ConnectionId: c.connectionId,
		ChannelId:    frame.ChannelId,
		IsTyping:     &isTyping,
	}, c.connectionId)

	return okResult(map[string]any{"broadcast": agg})
}

// Shutdown stops every local client socket.
func (h *Hub) Shutdown() {
	h.log.Println("shutting down hub")
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for _, c := range h.clients {
		c.stopClient()
	}
}
