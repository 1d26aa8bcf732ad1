package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"chat_sync_service/internal/attachment/domain"

	"github.com/disintegration/imaging"
)

// ThumbnailWidth width of every rendered preview
const ThumbnailWidth = 320

// ThumbnailRenderer turn an original into a JPEG preview
type ThumbnailRenderer interface {
	Render(ctx context.Context, fileType domain.FileType, src io.Reader) ([]byte, error)
}

type thumbnailRenderer struct {
	ffmpegPath string
	tmpDir     string
}

// NewThumbnailRenderer create ThumbnailRenderer, videos are handed to ffmpegPath
func NewThumbnailRenderer(ffmpegPath, tmpDir string) ThumbnailRenderer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &thumbnailRenderer{ffmpegPath: ffmpegPath, tmpDir: tmpDir}
}

func (r *thumbnailRenderer) Render(ctx context.Context, fileType domain.FileType, src io.Reader) ([]byte, error) {
	switch fileType {
	case domain.FileImage:
		return renderImage(src)
	case domain.FileVideo:
		return r.renderVideo(ctx, src)
	default:
		return nil, fmt.Errorf("no thumbnail for file type %q", fileType)
	}
}

func renderImage(src io.Reader) ([]byte, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	width := ThumbnailWidth
	if b := img.Bounds(); b.Dx() < width {
		width = b.Dx()
	}
	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// ffmpeg needs a seekable input, the object is spooled to disk first
func (r *thumbnailRenderer) renderVideo(ctx context.Context, src io.Reader) ([]byte, error) {
	tmp, err := os.CreateTemp(r.tmpDir, "thumb-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("spool video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("spool video: %w", err)
	}
	return ExtractFrame(ctx, r.ffmpegPath, tmp.Name(), ThumbnailWidth)
}
