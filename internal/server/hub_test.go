package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"huddle/internal/database"
	"huddle/internal/stats"
	"huddle/internal/testutil"
	"huddle/internal/types"
)

func newTestHub(t *testing.T, db database.HuddleRepository, su *stats.MockStatsUpdater) *Hub {
	t.Helper()
	return NewHub(testutil.TestLogger(t), db, su)
}

func permissiveStats() *stats.MockStatsUpdater {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()
	return su
}

// newLocalClient builds a client endpoint without a socket; only the send
// queue side is exercised.
func newLocalClient(connectionId, workspaceId, userId string) *Client {
	return &Client{
		connectionId: connectionId,
		workspaceId:  workspaceId,
		userId:       userId,
		send:         make(chan []byte, sendBufferSize),
		stop:         make(chan struct{}),
	}
}

func activeConn(connectionId, workspaceId, userId string) database.Connection {
	return database.Connection{
		ConnectionId: connectionId,
		WorkspaceId:  workspaceId,
		UserId:       userId,
		Status:       types.StatusConnected,
	}
}

func TestNewHub(t *testing.T) {
	h := newTestHub(t, &database.MockHuddleRepository{}, permissiveStats())

	assert.NotNil(t, h.lifecycle)
	assert.NotNil(t, h.messages)
	assert.NotNil(t, h.bc)
	assert.NotNil(t, h.clients)
	for _, action := range []Action{ActionMessage, ActionThreadMessage, ActionPresence, ActionTyping} {
		assert.Contains(t, h.dispatch, action)
	}
}

func TestHubSend(t *testing.T) {
	t.Run("unknown connection is gone", func(t *testing.T) {
		h := newTestHub(t, &database.MockHuddleRepository{}, permissiveStats())
		err := h.Send(context.Background(), "conn-ghost", []byte("hi"))
		assert.ErrorIs(t, err, ErrPeerGone)
	})

	t.Run("queues on the client send buffer", func(t *testing.T) {
		h := newTestHub(t, &database.MockHuddleRepository{}, permissiveStats())
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")
		h.clients["conn-1"] = c

		assert.NoError(t, h.Send(context.Background(), "conn-1", []byte("hi")))
		assert.Equal(t, []byte("hi"), <-c.send)
	})

	t.Run("stopped client is gone", func(t *testing.T) {
		h := newTestHub(t, &database.MockHuddleRepository{}, permissiveStats())
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")
		c.stopClient()
		h.clients["conn-1"] = c

		err := h.Send(context.Background(), "conn-1", []byte("hi"))
		assert.ErrorIs(t, err, ErrPeerGone)
	})

	t.Run("full buffer is transient", func(t *testing.T) {
		h := newTestHub(t, &database.MockHuddleRepository{}, permissiveStats())
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")
		c.send = make(chan []byte) // unbuffered, nothing draining
		h.clients["conn-1"] = c

		err := h.Send(context.Background(), "conn-1", []byte("hi"))
		assert.ErrorIs(t, err, ErrSendBufferFull)
	})
}

func TestHandleFrame_UnknownAction(t *testing.T) {
	h := newTestHub(t, &database.MockHuddleRepository{}, permissiveStats())
	c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")

	res := h.HandleFrame(context.Background(), c, &ActionFrame{Action: "subscribe"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHandleMessage(t *testing.T) {
	t.Run("persists before broadcasting", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("GetConnection", "conn-1").
			Return(activeConn("conn-1", "ws-1", "jdoe@example.com"), nil).Once()
		db.On("CreateMessage", mock.Anything).Return(errors.New("connection refused")).Once()

		h := newTestHub(t, db, permissiveStats())
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")

		res := h.HandleFrame(context.Background(), c, &ActionFrame{
			Action:    ActionMessage,
			ChannelId: "general",
			Content:   "hello",
		})

		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		// an unstored message is never fanned out
		db.AssertNotCalled(t, "ListWorkspaceConnections", mock.Anything, mock.Anything)
	})

	t.Run("fans out to peers including the sender", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("GetConnection", "conn-sender").
			Return(activeConn("conn-sender", "ws-1", "jdoe@example.com"), nil).Once()
		db.On("CreateMessage", mock.Anything).Return(nil).Once()
		db.On("ListWorkspaceConnections", "ws-1", true).Return([]database.Connection{
			activeConn("conn-sender", "ws-1", "jdoe@example.com"),
			activeConn("conn-peer", "ws-1", "asmith@example.com"),
		}, nil).Once()

		h := newTestHub(t, db, permissiveStats())
		sender := newLocalClient("conn-sender", "ws-1", "jdoe@example.com")
		peer := newLocalClient("conn-peer", "ws-1", "asmith@example.com")
		h.clients["conn-sender"] = sender
		h.clients["conn-peer"] = peer

		res := h.HandleFrame(context.Background(), sender, &ActionFrame{
			Action:    ActionMessage,
			ChannelId: "general",
			Content:   "hello",
		})

		assert.Equal(t, http.StatusOK, res.StatusCode)
		messageId, ok := res.Body["messageId"].(string)
		assert.True(t, ok, "result carries the canonical message id")

		agg, ok := res.Body["broadcast"].(BroadcastResult)
		assert.True(t, ok)
		assert.Equal(t, 2, agg.Total)
		assert.Equal(t, 2, agg.Successful)

		// both endpoints got the push; the sender dedups by messageId
		for _, c := range []*Client{sender, peer} {
			var push Push
			assert.NoError(t, json.Unmarshal(<-c.send, &push))
			assert.Equal(t, PushMessage, push.Type)
			assert.Equal(t, "general", push.ChannelId)
			assert.Equal(t, "hello", push.Content)
			assert.Equal(t, "jdoe@example.com", push.UserId)
			assert.Equal(t, messageId, push.MessageId)
		}
	})

	t.Run("partial delivery failure still acks", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("GetConnection", "conn-sender").
			Return(activeConn("conn-sender", "ws-1", "jdoe@example.com"), nil).Once()
		db.On("CreateMessage", mock.Anything).Return(nil).Once()
		db.On("ListWorkspaceConnections", "ws-1", true).Return([]database.Connection{
			activeConn("conn-sender", "ws-1", "jdoe@example.com"),
			activeConn("conn-stale", "ws-1", "asmith@example.com"),
		}, nil).Once()
		// the stale peer has no local endpoint, so it is reclaimed
		db.On("DeleteConnection", "conn-stale").Return(nil).Once()

		h := newTestHub(t, db, permissiveStats())
		sender := newLocalClient("conn-sender", "ws-1", "jdoe@example.com")
		h.clients["conn-sender"] = sender

		res := h.HandleFrame(context.Background(), sender, &ActionFrame{
			Action:    ActionMessage,
			ChannelId: "general",
			Content:   "hello",
		})

		assert.Equal(t, http.StatusOK, res.StatusCode, "durable write wins over delivery failures")
		agg := res.Body["broadcast"].(BroadcastResult)
		assert.Equal(t, 2, agg.Total)
		assert.Equal(t, 1, agg.Successful)
		assert.Equal(t, 1, agg.Failed)
	})

	t.Run("rejects inactive connection", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("GetConnection", "conn-1").Return(database.Connection{
			ConnectionId: "conn-1",
			Status:       types.StatusDisconnected,
		}, nil).Once()

		h := newTestHub(t, db, permissiveStats())
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")

		res := h.HandleFrame(context.Background(), c, &ActionFrame{
			Action:    ActionMessage,
			ChannelId: "general",
			Content:   "hello",
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		db.AssertNotCalled(t, "CreateMessage", mock.Anything)
	})

	t.Run("rejects unregistered connection", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("GetConnection", "conn-1").Return(database.Connection{}, sql.ErrNoRows).Once()

		h := newTestHub(t, db, permissiveStats())
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")

		res := h.HandleFrame(context.Background(), c, &ActionFrame{
			Action:    ActionMessage,
			ChannelId: "general",
			Content:   "hello",
		})
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestHandleThreadMessage(t *testing.T) {
	db := &database.MockHuddleRepository{}
	defer db.AssertExpectations(t)
	db.On("GetConnection", "conn-sender").
		Return(activeConn("conn-sender", "ws-1", "jdoe@example.com"), nil).Once()
	db.On("CreateThreadMessage", mock.Anything).Return(nil).Once()
	db.On("IncrementThreadCount", "general", "ts-parent").Return(nil).Once()
	db.On("ListWorkspaceConnections", "ws-1", true).Return([]database.Connection{
		activeConn("conn-peer", "ws-1", "asmith@example.com"),
	}, nil).Once()

	h := newTestHub(t, db, permissiveStats())
	sender := newLocalClient("conn-sender", "ws-1", "jdoe@example.com")
	peer := newLocalClient("conn-peer", "ws-1", "asmith@example.com")
	h.clients["conn-sender"] = sender
	h.clients["conn-peer"] = peer

	res := h.HandleFrame(context.Background(), sender, &ActionFrame{
		Action:          ActionThreadMessage,
		ParentMessageId: "general:ts-parent",
		Content:         "reply",
	})

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var push Push
	assert.NoError(t, json.Unmarshal(<-peer.send, &push))
	assert.Equal(t, PushThreadMessage, push.Type)
	assert.Equal(t, "general:ts-parent", push.ParentMessageId)
	assert.Equal(t, "reply", push.Content)
}

func TestHandlePresence(t *testing.T) {
	db := &database.MockHuddleRepository{}
	defer db.AssertExpectations(t)
	db.On("GetConnection", "conn-sender").
		Return(activeConn("conn-sender", "ws-1", "jdoe@example.com"), nil).Once()
	db.On("UpdateConnectionStatus", "conn-sender", types.StatusAway, mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	db.On("ListWorkspaceConnections", "ws-1", true).Return([]database.Connection{
		activeConn("conn-sender", "ws-1", "jdoe@example.com"),
		activeConn("conn-peer", "ws-1", "asmith@example.com"),
	}, nil).Once()

	h := newTestHub(t, db, permissiveStats())
	sender := newLocalClient("conn-sender", "ws-1", "jdoe@example.com")
	peer := newLocalClient("conn-peer", "ws-1", "asmith@example.com")
	h.clients["conn-sender"] = sender
	h.clients["conn-peer"] = peer

	res := h.HandleFrame(context.Background(), sender, &ActionFrame{
		Action: ActionPresence,
		Status: types.StatusAway,
	})

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var push Push
	assert.NoError(t, json.Unmarshal(<-peer.send, &push))
	assert.Equal(t, PushPresence, push.Type)
	assert.Equal(t, "conn-sender", push.ConnectionId)
	assert.Equal(t, types.StatusAway, push.Status)

	// presence updates are not echoed back to the sender
	assert.Empty(t, sender.send)
}

func TestHandleTyping(t *testing.T) {
	t.Run("broadcasts without persisting", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("ListWorkspaceConnections", "ws-1", true).Return([]database.Connection{
			activeConn("conn-sender", "ws-1", "jdoe@example.com"),
			activeConn("conn-peer", "ws-1", "asmith@example.com"),
		}, nil).Once()

		h := newTestHub(t, db, permissiveStats())
		sender := newLocalClient("conn-sender", "ws-1", "jdoe@example.com")
		peer := newLocalClient("conn-peer", "ws-1", "asmith@example.com")
		h.clients["conn-sender"] = sender
		h.clients["conn-peer"] = peer

		res := h.HandleFrame(context.Background(), sender, &ActionFrame{
			Action:    ActionTyping,
			ChannelId: "general",
			IsTyping:  true,
		})

		assert.Equal(t, http.StatusOK, res.StatusCode)

		var push Push
		assert.NoError(t, json.Unmarshal(<-peer.send, &push))
		assert.Equal(t, PushTyping, push.Type)
		assert.Equal(t, "general", push.ChannelId)
		if assert.NotNil(t, push.IsTyping) {
			assert.True(t, *push.IsTyping)
		}
		assert.Empty(t, sender.send, "typing is not echoed back to the sender")
	})

	t.Run("typing stop still serializes the flag", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("ListWorkspaceConnections", "ws-1", true).Return([]database.Connection{
			activeConn("conn-peer", "ws-1", "asmith@example.com"),
		}, nil).Once()

		h := newTestHub(t, db, permissiveStats())
		sender := newLocalClient("conn-sender", "ws-1", "jdoe@example.com")
		peer := newLocalClient("conn-peer", "ws-1", "asmith@example.com")
		h.clients["conn-peer"] = peer

		res := h.HandleFrame(context.Background(), sender, &ActionFrame{
			Action:    ActionTyping,
			ChannelId: "general",
			IsTyping:  false,
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)

		var push Push
		assert.NoError(t, json.Unmarshal(<-peer.send, &push))
		if assert.NotNil(t, push.IsTyping) {
			assert.False(t, *push.IsTyping)
		}
	})

	t.Run("missing channel", func(t *testing.T) {
		h := newTestHub(t, &database.MockHuddleRepository{}, permissiveStats())
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")

		res := h.HandleFrame(context.Background(), c, &ActionFrame{Action: ActionTyping})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestRegisterClient(t *testing.T) {
	db := &database.MockHuddleRepository{}
	defer db.AssertExpectations(t)
	db.On("GetConnection", "conn-1").Return(database.Connection{}, sql.ErrNoRows).Once()
	db.On("ListUserConnections", "ws-1", "jdoe@example.com").
		Return([]database.Connection{}, nil).Once()
	db.On("PutConnection", mock.Anything).Return(nil).Once()
	db.On("GetConnection", "conn-1").
		Return(activeConn("conn-1", "ws-1", "jdoe@example.com"), nil).Once()

	su := &stats.MockStatsUpdater{}
	su.On("Incr", MetricActiveConnections).Once()
	defer su.AssertExpectations(t)

	h := newTestHub(t, db, su)
	c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")

	conn, err := h.RegisterClient(c)
	assert.NoError(t, err)
	assert.Equal(t, types.StatusConnected, conn.Status)
	assert.Same(t, c, h.clients["conn-1"])
}

func TestDeregisterClient(t *testing.T) {
	t.Run("removes endpoint and registry record", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)
		db.On("DeleteConnection", "conn-1").Return(nil).Once()

		su := &stats.MockStatsUpdater{}
		su.On("Decr", MetricActiveConnections).Once()
		defer su.AssertExpectations(t)

		h := newTestHub(t, db, su)
		c := newLocalClient("conn-1", "ws-1", "jdoe@example.com")
		h.clients["conn-1"] = c

		h.DeregisterClient(c)
		assert.NotContains(t, h.clients, "conn-1")
	})

	t.Run("superseded endpoint leaves the registry alone", func(t *testing.T) {
		db := &database.MockHuddleRepository{}
		defer db.AssertExpectations(t)

		h := newTestHub(t, db, permissiveStats())
		old := newLocalClient("conn-1", "ws-1", "jdoe@example.com")
		replacement := newLocalClient("conn-1", "ws-1", "jdoe@example.com")
		h.clients["conn-1"] = replacement

		h.DeregisterClient(old)
		assert.Same(t, replacement, h.clients["conn-1"])
		db.AssertNotCalled(t, "DeleteConnection", mock.Anything)
	})
}
