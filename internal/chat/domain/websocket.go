package domain

import "time"

// Action client to server websocket action
type Action string

const (
	// ActionJoin join a chat room
	ActionJoin Action = "join"
	// ActionLeave leave a chat room
	ActionLeave Action = "leave"
	// ActionSendMessage send a message
	ActionSendMessage Action = "sendMessage"
	// ActionTyping typing indicator
	ActionTyping Action = "typing"
	// ActionMarkAsRead mark chat read
	ActionMarkAsRead Action = "markAsRead"
	// ActionDeleteMessage delete a message
	ActionDeleteMessage Action = "deleteMessage"
	// ActionEditMessage edit a message
	ActionEditMessage Action = "editMessage"
)

// Event server to client websocket event
type Event string

const (
	// EventNewMessage message appended
	EventNewMessage Event = "newMessage"
	// EventMessageEdited message edited
	EventMessageEdited Event = "messageEdited"
	// EventMessageDeleted message deleted
	EventMessageDeleted Event = "messageDeleted"
	// EventMessageRead chat read by a member
	EventMessageRead Event = "messageRead"
	// EventUserTyping typing indicator
	EventUserTyping Event = "userTyping"
	// EventUserStatus online / offline
	EventUserStatus Event = "userStatus"
	// EventMemberJoined connection joined the room
	EventMemberJoined Event = "memberJoined"
	// EventMemberLeft connection left the room
	EventMemberLeft Event = "memberLeft"
	// EventError rejected request
	EventError Event = "error"
	// EventAck direct answer to the requesting connection
	EventAck Event = "ack"
)

// WSRequest inbound frame
type WSRequest struct {
	Action      Action       `json:"action"`
	RequestID   string       `json:"requestId,omitempty"`
	ChatID      string       `json:"chatId,omitempty"`
	MessageID   string       `json:"messageId,omitempty"`
	Content     string       `json:"content,omitempty"`
	MessageType MessageType  `json:"messageType,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyTo     string       `json:"replyTo,omitempty"`
	IsTyping    bool         `json:"isTyping,omitempty"`
	Metadata    Metadata     `json:"metadata,omitempty"`
}

// WSResponse outbound frame
type WSResponse struct {
	Event     Event       `json:"event"`
	RequestID string      `json:"requestId,omitempty"`
	ChatID    string      `json:"chatId,omitempty"`
	Payload   interface{} `json:"data,omitempty"`
}

// ErrorPayload data of an error event
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AckPayload data of an ack event
type AckPayload struct {
	Action    Action      `json:"action"`
	MessageID string      `json:"messageId,omitempty"`
	Data      interface{} `json:"result,omitempty"`
}

// PresencePayload memberJoined / memberLeft / userStatus / userTyping data
type PresencePayload struct {
	UserID   string `json:"userId"`
	ChatID   string `json:"chatId,omitempty"`
	Status   string `json:"status,omitempty"`
	IsTyping *bool  `json:"isTyping,omitempty"`
}

// ReadPayload messageRead data
type ReadPayload struct {
	ChatID            string    `json:"chatId"`
	UserID            string    `json:"userId"`
	LastReadMessageID string    `json:"lastReadMessageId,omitempty"`
	ReadAt            time.Time `json:"readAt"`
}

// DeletedPayload messageDeleted data
type DeletedPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

const (
	// StatusOnline userStatus online
	StatusOnline = "online"
	// StatusOffline userStatus offline
	StatusOffline = "offline"
)

// RelayEnvelope broadcast shared with other nodes
type RelayEnvelope struct {
	Origin string     `json:"origin"`
	ChatID string     `json:"chatId"`
	Frame  WSResponse `json:"frame"`
}
