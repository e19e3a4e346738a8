package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Client is one websocket endpoint. Frames from the socket are dispatched
// through the hub; pushes for this connection are queued on send and drained
// by the write pump.
type Client struct {
	conn         *websocket.Conn
	hub          *Hub
	log          *log.Logger
	connectionId string
	workspaceId  string
	userId       string
	send         chan []byte
	stop         chan struct{}
	stopOnce     sync.Once
}

func NewClient(conn *websocket.Conn, hub *Hub, l *log.Logger, connectionId, workspaceId, userId string) *Client {
	return &Client{
		conn:         conn,
		hub:          hub,
		log:          l,
		connectionId: connectionId,
		workspaceId:  workspaceId,
		userId:       userId,
		send:         make(chan []byte, sendBufferSize),
		stop:         make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting for %q", c.connectionId)
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}

			if !c.sendMessage(websocket.TextMessage, data) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read exiting for %q", c.connectionId)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var frame ActionFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Printf("parse frame from %q: %v", c.connectionId, err)
			c.queueResult(errResult(400, "malformed frame"))
			continue
		}

		res := c.hub.HandleFrame(context.Background(), c, &frame)
		c.queueResult(res)
	}
}

// queueMessage hands a serialized push to the write pump. It never blocks:
// a stopped client reports ErrPeerGone and a full buffer reports
// ErrSendBufferFull, so a slow reader cannot stall a broadcast.
func (c *Client) queueMessage(data []byte) error {
	select {
	case <-c.stop:
		return ErrPeerGone
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.stop:
		return ErrPeerGone
	default:
		return ErrSendBufferFull
	}
}

// queueResult acks the frame outcome back to the sender only.
func (c *Client) queueResult(res Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.log.Printf("serialize result for %q: %v", c.connectionId, err)
		return
	}

	if err := c.queueMessage(data); err != nil {
		c.log.Printf("queue result for %q: %v", c.connectionId, err)
	}
}

func (c *Client) sendMessage(msgType int, data []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, data); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.hub.DeregisterClient(c)
	c.stopClient()
}
