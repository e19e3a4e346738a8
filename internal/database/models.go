package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Connection struct {
	ConnectionId string
	WorkspaceId  string
	UserId       string
	Status       string
	LastSeenAt   time.Time
}

// Message rows are keyed by (ChannelId, Timestamp). Timestamp is an ISO-8601
// string so lexical order is chronological order.
type Message struct {
	ChannelId   string
	Timestamp   string
	UserId      string
	Content     string
	Attachments []string
	Edited      bool
	Deleted     bool
	ThreadCount int
}

type ThreadMessage struct {
	ParentMessageId string
	Timestamp       string
	UserId          string
	Content         string
	Attachments     []string
	Edited          bool
	Deleted         bool
}

type ChannelRead struct {
	ChannelId         string
	UserId            string
	WorkspaceId       string
	LastReadMessageId string
	LastReadAt        time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}
