package domain

import (
	"io"
	"strings"
	"time"
)

// AttachmentStatus definition attachment status
type AttachmentStatus string

const (
	// AttachmentUploaded object stored, thumbnail pending or not needed
	AttachmentUploaded AttachmentStatus = "uploaded"
	// AttachmentReady thumbnail rendered
	AttachmentReady AttachmentStatus = "ready"
	// AttachmentFailed thumbnail job gave up
	AttachmentFailed AttachmentStatus = "failed"
)

// FileType coarse kind of an uploaded file, mirrors chat message types
type FileType string

const (
	// FileImage image/*
	FileImage FileType = "image"
	// FileVideo video/*
	FileVideo FileType = "video"
	// FileAudio audio/*
	FileAudio FileType = "audio"
	// FileOther anything else
	FileOther FileType = "file"
)

// FileTypeOf classify a MIME content type
func FileTypeOf(contentType string) FileType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return FileImage
	case strings.HasPrefix(contentType, "video/"):
		return FileVideo
	case strings.HasPrefix(contentType, "audio/"):
		return FileAudio
	default:
		return FileOther
	}
}

// Attachment stored file record
type Attachment struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	OwnerID     string `gorm:"index;type:varchar(64)"`
	FileName    string `gorm:"type:varchar(255)"`
	ContentType string `gorm:"type:varchar(127)"`
	FileType    string `gorm:"type:varchar(16)"`
	Size        int64  `gorm:"not null"`
	// ObjectKey key of the original in the bucket
	ObjectKey    string    `gorm:"type:varchar(512)"`
	ThumbnailKey string    `gorm:"type:varchar(512)"`
	Status       string    `gorm:"type:varchar(16);index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// NeedsThumbnail image and video files get a preview
func (a *Attachment) NeedsThumbnail() bool {
	t := FileType(a.FileType)
	return t == FileImage || t == FileVideo
}

// UploadInput usecase upload request
type UploadInput struct {
	OwnerID     string
	FileName    string
	ContentType string
	Size        int64
	File        io.Reader
}

// AttachmentView response body, urls are presigned
type AttachmentView struct {
	ID           string `json:"id"`
	FileName     string `json:"filename"`
	FileType     string `json:"fileType"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Size         int64  `json:"size"`
	Status       string `json:"status"`
}
