package app

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// ExtractFrame grab one frame of inputPath as a JPEG scaled to width
func ExtractFrame(ctx context.Context, ffmpegPath, inputPath string, width int) ([]byte, error) {
	cmdArgs := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", "1",
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", "scale=" + strconv.Itoa(width) + ":-2",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	}
	logger.Log.Debug("ffmpeg frame", zap.Strings("args", cmdArgs))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, cmdArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame: %w, output: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		// clips shorter than the seek offset produce no frame
		return nil, fmt.Errorf("ffmpeg frame: no frame extracted from %s", inputPath)
	}
	return stdout.Bytes(), nil
}
