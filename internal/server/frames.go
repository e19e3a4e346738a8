package server

import (
	"net/http"
)

// Action is the inbound frame tag. The set is closed; dispatch is by table
// lookup so an unknown tag is rejected in one place.
type Action string

const (
	ActionMessage       Action = "message"
	ActionThreadMessage Action = "thread_message"
	ActionPresence      Action = "presence"
	ActionTyping        Action = "typing"
)

// ActionFrame is the client -> server envelope. Field names follow the wire
// format the web client speaks.
type ActionFrame struct {
	Action          Action   `json:"action"`
	ChannelId       string   `json:"channelId,omitempty"`
	Content         string   `json:"content,omitempty"`
	Attachments     []string `json:"attachments,omitempty"`
	ParentMessageId string   `json:"parentMessageId,omitempty"`
	Status          string   `json:"status,omitempty"`
	IsTyping        bool     `json:"isTyping,omitempty"`
}

// PushType tags server -> client push frames.
type PushType string

const (
	PushMessage       PushType = "message"
	PushThreadMessage PushType = "thread_message"
	PushPresence      PushType = "presence"
	PushTyping        PushType = "typing"
)

// Push is the flat envelope fanned out to peer connections. Clients
// de-duplicate message pushes by MessageId.
type Push struct {
	Type            PushType `json:"type"`
	ChannelId       string   `json:"channelId,omitempty"`
	ParentMessageId string   `json:"parentMessageId,omitempty"`
	Content         string   `json:"content,omitempty"`
	UserId          string   `json:"userId,omitempty"`
	Timestamp       string   `json:"timestamp,omitempty"`
	Attachments     []string `json:"attachments,omitempty"`
	MessageId       string   `json:"messageId,omitempty"`
	ConnectionId    string   `json:"connectionId,omitempty"`
	Status          string   `json:"status,omitempty"`
	// pointer so a typing stop (false) still serializes
	IsTyping *bool `json:"isTyping,omitempty"`
}

// Result is the HTTP-like outcome of one action frame, acked to the sender
// only. A partially failed broadcast is still a success as long as the
// message was durably persisted.
type Result struct {
	StatusCode int            `json:"statusCode"`
	Body       map[string]any `json:"body,omitempty"`
}

// DeliveryResult records one per-connection broadcast attempt.
type DeliveryResult struct {
	ConnectionId string `json:"connectionId"`
	Success      bool   `json:"success"`
	Gone         bool   `json:"gone,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BroadcastResult is the aggregate of all delivery attempts for one payload.
type BroadcastResult struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Details    []DeliveryResult `json:"details,omitempty"`
}

func okResult(body map[string]any) Result {
	return Result{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

func errResult(statusCode int, message string) Result {
	return Result{
		StatusCode: statusCode,
		Body:       map[string]any{"message": message},
	}
}

func resultForError(err error) Result {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		// don't leak internals past the boundary
		return errResult(code, "internal server error")
	}
	return errResult(code, err.Error())
}
