// Package transcode converts uploaded media into the canonical container by
// shelling out to ffmpeg.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Transcoder converts the file at input into the canonical format at output.
// Implementations must leave no partial output behind on failure.
type Transcoder interface {
	Transcode(ctx context.Context, input, output string) error
}

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	Path string
	// Args are inserted between the input and output paths.
	Args []string
}

// DefaultArgs re-encode to H.264/AAC in an MP4 with the index up front.
var DefaultArgs = []string{"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", "-movflags", "+faststart"}

// NewFFmpeg returns an FFmpeg transcoder using DefaultArgs.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path, Args: DefaultArgs}
}

// Transcode runs ffmpeg and reports its stderr on failure.
func (f *FFmpeg) Transcode(ctx context.Context, input, output string) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", input}
	args = append(args, f.Args...)
	args = append(args, "-f", "mp4", output)

	cmd := exec.CommandContext(ctx, f.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(output)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited with %d: %s", exitErr.ExitCode(), lastLine(stderr.String()))
		}
		return fmt.Errorf("run ffmpeg: %w", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("ffmpeg output: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(output)
		return errors.New("ffmpeg produced an empty file")
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	if s == "" {
		return "no output"
	}
	return s
}
