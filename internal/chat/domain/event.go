package domain

import "time"

// ChatEventType durable change kind on the event stream
type ChatEventType string

const (
	// EventMessageCreated message appended
	EventMessageCreated ChatEventType = "message.created"
	// EventMessageEditedStream message edited
	EventMessageEditedStream ChatEventType = "message.edited"
	// EventMessageDeletedStream message deleted
	EventMessageDeletedStream ChatEventType = "message.deleted"
	// EventChatRead member read the chat
	EventChatRead ChatEventType = "chat.read"
	// EventChatCreated chat created
	EventChatCreated ChatEventType = "chat.created"
	// EventMemberAdded member added to a group
	EventMemberAdded ChatEventType = "chat.member_added"
	// EventMemberRemoved member removed or left
	EventMemberRemoved ChatEventType = "chat.member_removed"
	// EventChatRenamed group renamed
	EventChatRenamed ChatEventType = "chat.renamed"
)

// ChatEvent record published after a durable mutation
type ChatEvent struct {
	ID        string        `json:"id"`
	Type      ChatEventType `json:"type"`
	ChatID    string        `json:"chatId"`
	ActorID   string        `json:"actorId"`
	MessageID string        `json:"messageId,omitempty"`
	TargetID  string        `json:"targetId,omitempty"`
	At        time.Time     `json:"at"`
}
