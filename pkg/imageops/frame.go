package imageops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jacktea/mofs/pkg/native"
)

// FrameExtractor produces a still image from a video file.
type FrameExtractor interface {
	Frame(ctx context.Context, path string, args native.FrameArgs) ([]byte, string, error)
}

// FFmpeg extracts the first video frame by running the ffmpeg binary.
type FFmpeg struct {
	// Path to the ffmpeg binary. Defaults to "ffmpeg" on $PATH.
	Path string
}

func (f FFmpeg) Frame(ctx context.Context, path string, args native.FrameArgs) ([]byte, string, error) {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	enc := args.Encoding
	if enc == "" {
		enc = native.EncodingJPEG
	}
	cmdArgs := []string{"-hide_banner", "-loglevel", "error", "-i", path, "-frames:v", "1", "-f", "image2pipe"}
	switch enc {
	case native.EncodingPNG:
		cmdArgs = append(cmdArgs, "-vcodec", "png")
	case native.EncodingJPEG:
		q := -1.0
		if args.Quality != nil {
			q = *args.Quality
		}
		cmdArgs = append(cmdArgs, "-vcodec", "mjpeg", "-q:v", strconv.Itoa(ffmpegQScale(q)))
	default:
		return nil, "", fmt.Errorf("imageops: %s frames: %w", enc, native.ErrNotSupported)
	}
	cmdArgs = append(cmdArgs, "-")

	cmd := exec.CommandContext(ctx, bin, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("imageops: %s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, "", fmt.Errorf("imageops: %s produced no frame for %s", bin, path)
	}
	return stdout.Bytes(), enc.MimeType(), nil
}

// ffmpegQScale maps quality in [0,1] onto mjpeg's 31..2 scale.
func ffmpegQScale(q float64) int {
	if q < 0 || q > 1 {
		return 2
	}
	return 31 - int(q*29)
}
