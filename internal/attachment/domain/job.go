package domain

// ThumbnailJob queued after an image or video upload
type ThumbnailJob struct {
	AttachmentID string `json:"attachment_id"`
	ObjectKey    string `json:"object_key"`
	FileType     string `json:"file_type"`
}
