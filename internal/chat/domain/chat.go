package domain

import (
	"sort"
	"strings"
	"time"
)

// ChatStatus chat level status
type ChatStatus string

const (
	// ChatActive chat in use
	ChatActive ChatStatus = "active"
	// ChatArchived chat archived for every member
	ChatArchived ChatStatus = "archived"
)

// MemberStatus per member view of a chat
type MemberStatus string

const (
	// MemberActive default
	MemberActive MemberStatus = "active"
	// MemberArchived hidden from the default chat list
	MemberArchived MemberStatus = "archived"
	// MemberMuted no change besides the flag
	MemberMuted MemberStatus = "muted"
)

// Valid known member status
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberArchived, MemberMuted:
		return true
	}
	return false
}

const (
	// ChatCollection mongo collection of chats
	ChatCollection = "chats"
	// MessageCollection mongo collection of messages
	MessageCollection = "messages"
)

// MemberMeta per (chat, user) read state
type MemberMeta struct {
	UserID            string       `bson:"user_id" json:"userId"`
	UnreadCount       int          `bson:"unread_count" json:"unreadCount"`
	LastReadMessageID string       `bson:"last_read_message_id,omitempty" json:"lastReadMessageId,omitempty"`
	Status            MemberStatus `bson:"status" json:"status"`
}

// Chat private or group conversation
type Chat struct {
	ID          string   `bson:"_id" json:"id"`
	IsGroup     bool     `bson:"is_group" json:"isGroup"`
	Members     []string `bson:"members" json:"members"`
	Name        string   `bson:"name,omitempty" json:"name,omitempty"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Avatar      string   `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CreatedBy   string   `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	Admins      []string `bson:"admins,omitempty" json:"admins,omitempty"`

	// PairKey is set on private chats only, unique sparse index
	PairKey string `bson:"pair_key,omitempty" json:"-"`

	MessageIDs    []string   `bson:"message_ids" json:"messageIds"`
	LastMessageID string     `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastMessageAt *time.Time `bson:"last_message_at,omitempty" json:"lastMessageAt,omitempty"`

	Status     ChatStatus   `bson:"status" json:"status"`
	MemberMeta []MemberMeta `bson:"member_meta" json:"memberMeta"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`

	// LastMessage populated for listings, not stored
	LastMessage *Message `bson:"-" json:"lastMessage,omitempty"`
}

// PairKey order independent key of a private chat
func PairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// HasMember user is in members
func (c *Chat) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// IsAdmin user is a group admin
func (c *Chat) IsAdmin(userID string) bool {
	if !c.IsGroup {
		return false
	}
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}
	return false
}

// Meta metadata of userID, nil when absent
func (c *Chat) Meta(userID string) *MemberMeta {
	for i := range c.MemberMeta {
		if c.MemberMeta[i].UserID == userID {
			return &c.MemberMeta[i]
		}
	}
	return nil
}

// UnreadFor unread count of userID, 0 without metadata
func (c *Chat) UnreadFor(userID string) int {
	if m := c.Meta(userID); m != nil {
		return m.UnreadCount
	}
	return 0
}

// StatusFor member status of userID, active without metadata
func (c *Chat) StatusFor(userID string) MemberStatus {
	if m := c.Meta(userID); m != nil && m.Status != "" {
		return m.Status
	}
	return MemberActive
}

// UserProfile user as seen by the chat service
type UserProfile struct {
	UserID   string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Page message list window, Before nil means newest
type Page struct {
	Limit  int
	Before *time.Time
}
