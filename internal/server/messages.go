package server

import (
	"database/sql"
	"errors"
	"log"
	"strings"

	"huddle/internal/database"
	"huddle/internal/types"
)

// DeletedPlaceholder replaces the content of soft-deleted messages. The row
// itself is never removed so thread counts and ordering references stay
// valid; clients suppress rendering via the deleted flag.
const DeletedPlaceholder = "[Message deleted]"

const defaultListLimit = 50

// MessageStore is the append-only durable message log, keyed by
// (channel, timestamp) with a secondary thread log keyed by
// (parent message id, timestamp).
type MessageStore struct {
	db    database.HuddleRepository
	clock *Clock
	log   *log.Logger
}

func NewMessageStore(db database.HuddleRepository, logger *log.Logger) *MessageStore {
	return &MessageStore{
		db:    db,
		clock: NewClock(),
		log:   logger,
	}
}

// Append persists a channel message and returns the stored record. The
// record's timestamp is the message's sort key and, combined with the
// channel id, its canonical id.
func (ms *MessageStore) Append(channelId, userId, content string, attachments []string) (types.Message, error) {
	content = strings.TrimSpace(content)
	if channelId == "" || userId == "" {
		return types.Message{}, ErrMissingParams
	}
	if content == "" && len(attachments) == 0 {
		return types.Message{}, ErrEmptyMessage
	}

	record := database.Message{
		ChannelId:   channelId,
		Timestamp:   ms.clock.Timestamp(),
		UserId:      userId,
		Content:     content,
		Attachments: attachments,
	}
	if err := ms.db.CreateMessage(record); err != nil {
		return types.Message{}, storageError("create message", err)
	}

	return messageFromDB(record), nil
}

// Edit replaces a message's content. Only the original author may edit.
func (ms *MessageStore) Edit(channelId, timestamp, userId, content string) (types.Message, error) {
	content = strings.TrimSpace(content)
	if channelId == "" || timestamp == "" || content == "" {
		return types.Message{}, ErrMissingParams
	}

	existing, err := ms.db.GetMessage(channelId, timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return types.Message{}, storageError("get message", err)
	}
	if existing.UserId != userId {
		return types.Message{}, ErrUnauthorized
	}

	updated, err := ms.db.UpdateMessageContent(channelId, timestamp, content)
	if err != nil {
		return types.Message{}, storageError("update message", err)
	}

	return messageFromDB(updated), nil
}

// Delete soft-deletes a message. Only the original author may delete.
func (ms *MessageStore) Delete(channelId, timestamp, userId string) (types.Message, error) {
	if channelId == "" || timestamp == "" {
		return types.Message{}, ErrMissingParams
	}

	existing, err := ms.db.GetMessage(channelId, timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return types.Message{}, storageError("get message", err)
	}
	if existing.UserId != userId {
		return types.Message{}, ErrUnauthorized
	}

	deleted, err := ms.db.SoftDeleteMessage(channelId, timestamp, DeletedPlaceholder)
	if err != nil {
		return types.Message{}, storageError("soft delete message", err)
	}

	return messageFromDB(deleted), nil
}

// AppendThread persists a reply and then bumps the parent's thread counter.
// The two writes are independent: if the increment fails the reply still
// stands, since thread existence is the source of truth and the counter is
// a display optimization that converges on a later reply.
func (ms *MessageStore) AppendThread(parentMessageId, userId, content string, attachments []string) (types.ThreadMessage, error) {
	content = strings.TrimSpace(content)
	if parentMessageId == "" || userId == "" {
		return types.ThreadMessage{}, ErrMissingParams
	}
	if content == "" && len(attachments) == 0 {
		return types.ThreadMessage{}, ErrEmptyMessage
	}

	record := database.ThreadMessage{
		ParentMessageId: parentMessageId,
		Timestamp:       ms.clock.Timestamp(),
		UserId:          userId,
		Content:         content,
		Attachments:     attachments,
	}
	if err := ms.db.CreateThreadMessage(record); err != nil {
		return types.ThreadMessage{}, storageError("create thread message", err)
	}

	channelId, parentTs, ok := splitMessageId(parentMessageId)
	if !ok {
		ms.log.Printf("thread counter skipped, malformed parent message id %q", parentMessageId)
	} else if err := ms.db.IncrementThreadCount(channelId, parentTs); err != nil {
		ms.log.Printf("increment thread count for %q: %v", parentMessageId, err)
	}

	return threadMessageFromDB(record), nil
}

// EditThread mirrors Edit for thread replies.
func (ms *MessageStore) EditThread(parentMessageId, timestamp, userId, content string) (types.ThreadMessage, error) {
	content = strings.TrimSpace(content)
	if parentMessageId == "" || timestamp == "" || content == "" {
		return types.ThreadMessage{}, ErrMissingParams
	}

	existing, err := ms.db.GetThreadMessage(parentMessageId, timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ThreadMessage{}, ErrMessageNotFound
	}
	if err != nil {
		return types.ThreadMessage{}, storageError("get thread message", err)
	}
	if existing.UserId != userId {
		return types.ThreadMessage{}, ErrUnauthorized
	}

	updated, err := ms.db.UpdateThreadMessageContent(parentMessageId, timestamp, content)
	if err != nil {
		return types.ThreadMessage{}, storageError("update thread message", err)
	}

	return threadMessageFromDB(updated), nil
}

// DeleteThread mirrors Delete for thread replies. The parent linkage and
// counter are left untouched.
func (ms *MessageStore) DeleteThread(parentMessageId, timestamp, userId string) (types.ThreadMessage, error) {
	if parentMessageId == "" || timestamp == "" {
		return types.ThreadMessage{}, ErrMissingParams
	}

	existing, err := ms.db.GetThreadMessage(parentMessageId, timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ThreadMessage{}, ErrMessageNotFound
	}
	if err != nil {
		return types.ThreadMessage{}, storageError("get thread message", err)
	}
	if existing.UserId != userId {
		return types.ThreadMessage{}, ErrUnauthorized
	}

	deleted, err := ms.db.SoftDeleteThreadMessage(parentMessageId, timestamp, DeletedPlaceholder)
	if err != nil {
		return types.ThreadMessage{}, storageError("soft delete thread message", err)
	}

	return threadMessageFromDB(deleted), nil
}

// ListChannel returns the most recent messages newest-first, or the
// messages after the since cursor oldest-first when one is given. Readers
// reconstructing history always see timestamp order regardless of the
// order concurrent writers were fanned out in.
func (ms *MessageStore) ListChannel(channelId, since string, limit int) ([]types.Message, error) {
	if channelId == "" {
		return nil, ErrMissingParams
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	records, err := ms.db.ListChannelMessages(channelId, since, limit)
	if err != nil {
		return nil, storageError("list channel messages", err)
	}

	msgs := make([]types.Message, len(records))
	for i, record := range records {
		msgs[i] = messageFromDB(record)
	}
	return msgs, nil
}

// ListThread returns a parent's replies oldest-first.
func (ms *MessageStore) ListThread(parentMessageId string) ([]types.ThreadMessage, error) {
	if parentMessageId == "" {
		return nil, ErrMissingParams
	}

	records, err := ms.db.ListThreadMessages(parentMessageId)
	if err != nil {
		return nil, storageError("list thread messages", err)
	}

	msgs := make([]types.ThreadMessage, len(records))
	for i, record := range records {
		msgs[i] = threadMessageFromDB(record)
	}
	return msgs, nil
}

// splitMessageId breaks a "{channelId}:{timestamp}" composite key apart.
// Channel ids never contain a colon, so the first one is the separator.
func splitMessageId(messageId string) (channelId, timestamp string, ok bool) {
	idx := strings.Index(messageId, ":")
	if idx <= 0 || idx == len(messageId)-1 {
		return "", "", false
	}
	return messageId[:idx], messageId[idx+1:], true
}

func messageFromDB(msg database.Message) types.Message {
	return types.Message{
		ChannelId:   msg.ChannelId,
		Timestamp:   msg.Timestamp,
		UserId:      msg.UserId,
		Content:     msg.Content,
		Attachments: msg.Attachments,
		Edited:      msg.Edited,
		Deleted:     msg.Deleted,
		ThreadCount: msg.ThreadCount,
	}
}

func threadMessageFromDB(msg database.ThreadMessage) types.ThreadMessage {
	return types.ThreadMessage{
		ParentMessageId: msg.ParentMessageId,
		Timestamp:       msg.Timestamp,
		UserId:          msg.UserId,
		Content:         msg.Content,
		Attachments:     msg.Attachments,
		Edited:          msg.Edited,
		Deleted:         msg.Deleted,
	}
}
