package domain

import (
	"fmt"
	"time"
)

// MessageType kind of message content
type MessageType string

const (
	// MessageText plain text
	MessageText MessageType = "text"
	// MessageImage image attachment
	MessageImage MessageType = "image"
	// MessageVideo video attachment
	MessageVideo MessageType = "video"
	// MessageFile generic file
	MessageFile MessageType = "file"
	// MessageAudio audio clip
	MessageAudio MessageType = "audio"
	// MessageLocation shared location
	MessageLocation MessageType = "location"
	// MessageSystem generated by the server
	MessageSystem MessageType = "system"
)

// Valid known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageFile, MessageAudio, MessageLocation, MessageSystem:
		return true
	}
	return false
}

// SystemMessageType what a system message announces
type SystemMessageType string

const (
	// SystemUserJoined user joined
	SystemUserJoined SystemMessageType = "userJoined"
	// SystemUserLeft user left the group
	SystemUserLeft SystemMessageType = "userLeft"
	// SystemGroupCreated group created
	SystemGroupCreated SystemMessageType = "groupCreated"
	// SystemGroupRenamed group renamed
	SystemGroupRenamed SystemMessageType = "groupRenamed"
	// SystemUserAdded member added by an admin
	SystemUserAdded SystemMessageType = "userAdded"
	// SystemUserRemoved member removed by an admin
	SystemUserRemoved SystemMessageType = "userRemoved"
)

// MessageStatus delivery state
type MessageStatus string

const (
	// StatusSent persisted
	StatusSent MessageStatus = "sent"
	// StatusDelivered reached a recipient connection
	StatusDelivered MessageStatus = "delivered"
	// StatusRead read by a recipient
	StatusRead MessageStatus = "read"
)

// Attachment as returned by the attachment service
type Attachment struct {
	Filename     string `bson:"filename" json:"filename"`
	FileType     string `bson:"file_type" json:"fileType"`
	URL          string `bson:"url" json:"url"`
	Size         int64  `bson:"size" json:"size"`
	ThumbnailURL string `bson:"thumbnail_url,omitempty" json:"thumbnailUrl,omitempty"`
}

// ReadReceipt one reader of a message
type ReadReceipt struct {
	UserID string    `bson:"user_id" json:"userId"`
	ReadAt time.Time `bson:"read_at" json:"readAt"`
}

// Edited edit marker
type Edited struct {
	IsEdited bool       `bson:"is_edited" json:"isEdited"`
	EditedAt *time.Time `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
}

// Deleted soft delete marker
type Deleted struct {
	IsDeleted bool       `bson:"is_deleted" json:"isDeleted"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
}

// Message one chat message
type Message struct {
	ID                string            `bson:"_id" json:"id"`
	ChatID            string            `bson:"chat_id" json:"chatId"`
	SenderID          string            `bson:"sender_id" json:"senderId"`
	Content           string            `bson:"content" json:"content"`
	MessageType       MessageType       `bson:"message_type" json:"messageType"`
	Attachments       []Attachment      `bson:"attachments,omitempty" json:"attachments,omitempty"`
	SystemMessageType SystemMessageType `bson:"system_message_type,omitempty" json:"systemMessageType,omitempty"`
	Status            MessageStatus     `bson:"status" json:"status"`
	ReadBy            []ReadReceipt     `bson:"read_by" json:"readBy"`
	ReplyTo           string            `bson:"reply_to,omitempty" json:"replyToId,omitempty"`
	Edited            Edited            `bson:"edited" json:"edited"`
	Deleted           Deleted           `bson:"deleted" json:"deleted"`
	Metadata          Metadata          `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt         time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updatedAt"`

	// resolved for delivery, not stored
	Sender       *UserProfile `bson:"-" json:"sender,omitempty"`
	ReplyMessage *Message     `bson:"-" json:"replyTo,omitempty"`
}

// ReadByUser userID has a receipt
func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MetadataKey allowed metadata key
type MetadataKey string

// Metadata typed key value map
type Metadata map[MetadataKey]string

const (
	// MetaLatitude location latitude
	MetaLatitude MetadataKey = "latitude"
	// MetaLongitude location longitude
	MetaLongitude MetadataKey = "longitude"
	// MetaAddress location address
	MetaAddress MetadataKey = "address"
	// MetaWidth media width
	MetaWidth MetadataKey = "width"
	// MetaHeight media height
	MetaHeight MetadataKey = "height"
	// MetaDuration media duration in seconds
	MetaDuration MetadataKey = "duration"
	// MetaPages document page count
	MetaPages MetadataKey = "pages"
	// MetaTargetUserID user a system message is about
	MetaTargetUserID MetadataKey = "targetUserId"
	// MetaOldName group name before rename
	MetaOldName MetadataKey = "oldName"
	// MetaNewName group name after rename
	MetaNewName MetadataKey = "newName"
)

var allowedMetadata = map[MessageType][]MetadataKey{
	MessageText:     nil,
	MessageLocation: {MetaLatitude, MetaLongitude, MetaAddress},
	MessageImage:    {MetaWidth, MetaHeight},
	MessageVideo:    {MetaWidth, MetaHeight, MetaDuration},
	MessageAudio:    {MetaDuration},
	MessageFile:     {MetaPages},
	MessageSystem:   {MetaTargetUserID, MetaOldName, MetaNewName},
}

// AllowedMetadataKeys keys accepted for t
func AllowedMetadataKeys(t MessageType) []MetadataKey {
	return allowedMetadata[t]
}

// Validate every key is allowed for t
func (md Metadata) Validate(t MessageType) error {
	allowed := allowedMetadata[t]
	for k := range md {
		ok := false
		for _, a := range allowed {
			if a == k {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("metadata key %q not allowed for %s messages", k, t)
		}
	}
	return nil
}
