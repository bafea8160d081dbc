package browser

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// frameBuffer is how many frames may queue while ffmpeg catches up.
// Frames beyond that are dropped.
const frameBuffer = 64

// recorder encodes JPEG screencast frames into a webm file through ffmpeg
type recorder struct {
	path   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	group  errgroup.Group

	mu     sync.Mutex
	frames chan []byte
	closed bool
	frameN int

	result string
	err    error
}

// ffmpegArgs reads MJPEG from stdin and writes a VP8 webm of width x height to path
func ffmpegArgs(path string, width, height int) []string {
	size := strconv.Itoa(width) + ":" + strconv.Itoa(height)
	return []string{
		"-y",
		"-loglevel", "error",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-use_wallclock_as_timestamps", "1",
		"-i", "-",
		"-vf", "scale=" + size + ":force_original_aspect_ratio=decrease,pad=" + size + ":(ow-iw)/2:(oh-ih)/2",
		"-c:v", "libvpx",
		"-b:v", "1M",
		"-f", "webm",
		path,
	}
}

// startRecorder starts ffmpeg writing to a randomly named file in dir
func startRecorder(dir string, width, height int) (*recorder, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	r := &recorder{
		path:   filepath.Join(dir, uuid.NewString()+".webm"),
		frames: make(chan []byte, frameBuffer),
	}
	r.cmd = exec.Command(ffmpeg, ffmpegArgs(r.path, width, height)...)
	r.cmd.Stderr = &r.stderr

	r.stdin, err = r.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe failed: %w", err)
	}
	if err := r.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	r.group.Go(r.pump)
	return r, nil
}

func (r *recorder) pump() error {
	var writeErr error
	for frame := range r.frames {
		if writeErr != nil {
			continue
		}
		if _, err := r.stdin.Write(frame); err != nil {
			writeErr = fmt.Errorf("failed to write frame: %w", err)
		}
	}
	if err := r.stdin.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	return writeErr
}

// push queues a frame, dropping it when the encoder is behind or stopped
func (r *recorder) push(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	select {
	case r.frames <- frame:
		r.frameN++
	default:
	}
}

// finish flushes queued frames and waits for ffmpeg to write the file.
// Later calls return the first result.
func (r *recorder) finish() (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.result, r.err
	}
	r.closed = true
	close(r.frames)
	frames := r.frameN
	r.mu.Unlock()

	pumpErr := r.group.Wait()
	waitErr := r.cmd.Wait()

	switch {
	case frames == 0:
		r.err = fmt.Errorf("%w: no frames captured", ErrNoVideo)
	case pumpErr != nil:
		r.err = pumpErr
	case waitErr != nil:
		r.err = fmt.Errorf("ffmpeg failed: %w: %s", waitErr, strings.TrimSpace(r.stderr.String()))
	default:
		r.result = r.path
	}
	return r.result, r.err
}
