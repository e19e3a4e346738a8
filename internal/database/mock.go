package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockHuddleRepository struct {
	mock.Mock
}

func (m *MockHuddleRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockHuddleRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockHuddleRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockHuddleRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockHuddleRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockHuddleRepository) GetConnection(connectionId string) (Connection, error) {
	args := m.Called(connectionId)
	return args.Get(0).(Connection), args.Error(1)
}

func (m *MockHuddleRepository) PutConnection(conn Connection) error {
	args := m.Called(conn)
	return args.Error(0)
}

func (m *MockHuddleRepository) DeleteConnection(connectionId string) error {
	args := m.Called(connectionId)
	return args.Error(0)
}

func (m *MockHuddleRepository) UpdateConnectionStatus(connectionId, status string, lastSeenAt time.Time) error {
	args := m.Called(connectionId, status, lastSeenAt)
	return args.Error(0)
}

func (m *MockHuddleRepository) ListWorkspaceConnections(workspaceId string, activeOnly bool) ([]Connection, error) {
	args := m.Called(workspaceId, activeOnly)
	return args.Get(0).([]Connection), args.Error(1)
}

func (m *MockHuddleRepository) ListUserConnections(workspaceId, userId string) ([]Connection, error) {
	args := m.Called(workspaceId, userId)
	return args.Get(0).([]Connection), args.Error(1)
}

func (m *MockHuddleRepository) CreateMessage(msg Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockHuddleRepository) GetMessage(channelId, timestamp string) (Message, error) {
	args := m.Called(channelId, timestamp)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockHuddleRepository) UpdateMessageContent(channelId, timestamp, content string) (Message, error) {
	args := m.Called(channelId, timestamp, content)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockHuddleRepository) SoftDeleteMessage(channelId, timestamp, placeholder string) (Message, error) {
	args := m.Called(channelId, timestamp, placeholder)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockHuddleRepository) IncrementThreadCount(channelId, timestamp string) error {
	args := m.Called(channelId, timestamp)
	return args.Error(0)
}

func (m *MockHuddleRepository) ListChannelMessages(channelId, since string, limit int) ([]Message, error) {
	args := m.Called(channelId, since, limit)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockHuddleRepository) CreateThreadMessage(msg ThreadMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockHuddleRepository) GetThreadMessage(parentMessageId, timestamp string) (ThreadMessage, error) {
	args := m.Called(parentMessageId, timestamp)
	return args.Get(0).(ThreadMessage), args.Error(1)
}

func (m *MockHuddleRepository) UpdateThreadMessageContent(parentMessageId, timestamp, content string) (ThreadMessage, error) {
	args := m.Called(parentMessageId, timestamp, content)
	return args.Get(0).(ThreadMessage), args.Error(1)
}

func (m *MockHuddleRepository) SoftDeleteThreadMessage(parentMessageId, timestamp, placeholder string) (ThreadMessage, error) {
	args := m.Called(parentMessageId, timestamp, placeholder)
	return args.Get(0).(ThreadMessage), args.Error(1)
}

func (m *MockHuddleRepository) ListThreadMessages(parentMessageId string) ([]ThreadMessage, error) {
	args := m.Called(parentMessageId)
	return args.Get(0).([]ThreadMessage), args.Error(1)
}

func (m *MockHuddleRepository) PutChannelRead(read ChannelRead) error {
	args := m.Called(read)
	return args.Error(0)
}

func (m *MockHuddleRepository) ListChannelReads(channelId string) ([]ChannelRead, error) {
	args := m.Called(channelId)
	return args.Get(0).([]ChannelRead), args.Error(1)
}
