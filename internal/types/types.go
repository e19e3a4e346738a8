package types

import (
	"time"
)

const (
	StatusConnected    = "connected"
	StatusOnline       = "online"
	StatusAway         = "away"
	StatusOffline      = "offline"
	StatusDisconnected = "disconnected"
)

// ActiveStatus reports whether a connection status counts as live for
// fanout purposes. "connected" and "online" are equivalent here.
func ActiveStatus(status string) bool {
	return status == StatusConnected || status == StatusOnline
}

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Connection is one live transport-level session for a user in a workspace.
type Connection struct {
	ConnectionId string    `json:"connection_id"`
	WorkspaceId  string    `json:"workspace_id"`
	UserId       string    `json:"user_id"`
	Status       string    `json:"status"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// Message is a persisted channel message. Timestamp is an ISO-8601 string
// which doubles as the sort key; ChannelId+Timestamp form the message id.
type Message struct {
	ChannelId   string   `json:"channel_id"`
	Timestamp   string   `json:"timestamp"`
	UserId      string   `json:"user_id"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
	Edited      bool     `json:"edited,omitempty"`
	Deleted     bool     `json:"deleted,omitempty"`
	ThreadCount int      `json:"thread_count,omitempty"`
}

// MessageId returns the canonical "{channelId}:{timestamp}" id clients use
// for de-duplication.
func (m Message) MessageId() string {
	return m.ChannelId + ":" + m.Timestamp
}

// ThreadMessage is a reply anchored to a parent message. ParentMessageId is
// the parent's "{channelId}:{timestamp}" composite key.
type ThreadMessage struct {
	ParentMessageId string   `json:"parent_message_id"`
	Timestamp       string   `json:"timestamp"`
	UserId          string   `json:"user_id"`
	Content         string   `json:"content"`
	Attachments     []string `json:"attachments,omitempty"`
	Edited          bool     `json:"edited,omitempty"`
	Deleted         bool     `json:"deleted,omitempty"`
}

func (m ThreadMessage) MessageId() string {
	return m.ParentMessageId + ":" + m.Timestamp
}

// ChannelRead is a per-user last-read marker for a channel.
type ChannelRead struct {
	ChannelId         string    `json:"channel_id"`
	UserId            string    `json:"user_id"`
	WorkspaceId       string    `json:"workspace_id"`
	LastReadMessageId string    `json:"last_read_message_id"`
	LastReadAt        time.Time `json:"last_read_at"`
}
