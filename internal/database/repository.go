package database

import "time"

type HuddleRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)

	GetConnection(connectionId string) (Connection, error)
	PutConnection(conn Connection) error
	DeleteConnection(connectionId string) error
	UpdateConnectionStatus(connectionId, status string, lastSeenAt time.Time) error
	ListWorkspaceConnections(workspaceId string, activeOnly bool) ([]Connection, error)
	ListUserConnections(workspaceId, userId string) ([]Connection, error)

	CreateMessage(msg Message) error
	GetMessage(channelId, timestamp string) (Message, error)
	UpdateMessageContent(channelId, timestamp, content string) (Message, error)
	SoftDeleteMessage(channelId, timestamp, placeholder string) (Message, error)
	IncrementThreadCount(channelId, timestamp string) error
	ListChannelMessages(channelId, since string, limit int) ([]Message, error)

	CreateThreadMessage(msg ThreadMessage) error
	GetThreadMessage(parentMessageId, timestamp string) (ThreadMessage, error)
	UpdateThreadMessageContent(parentMessageId, timestamp, content string) (ThreadMessage, error)
	SoftDeleteThreadMessage(parentMessageId, timestamp, placeholder string) (ThreadMessage, error)
	ListThreadMessages(parentMessageId string) ([]ThreadMessage, error)

	PutChannelRead(read ChannelRead) error
	ListChannelReads(channelId string) ([]ChannelRead, error)
}
